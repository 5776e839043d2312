package restart

import (
	"fmt"
	"math/rand"
	"strings"
)

// Talent grades, lowest to highest.
const (
	gradeCommon = iota
	gradeUncommon
	gradeRare
	gradeLegendary
)

func gradeLabel(grade int) string {
	switch grade {
	case gradeCommon:
		return "common"
	case gradeUncommon:
		return "uncommon"
	case gradeRare:
		return "rare"
	case gradeLegendary:
		return "legendary"
	default:
		return "unknown"
	}
}

// Stats are the allocatable attributes plus the hidden luck stat rolled at
// birth.
type Stats struct {
	Charm     int
	Intellect int
	Body      int
	Wealth    int
	Luck      int
}

func (s Stats) String() string {
	return fmt.Sprintf("final stats: charm %d, intellect %d, body %d, wealth %d, luck %d",
		s.Charm, s.Intellect, s.Body, s.Wealth, s.Luck)
}

// Talent is one inheritable trait: a birth stat boost plus extra allocation
// points.
type Talent struct {
	ID     int
	Name   string
	Desc   string
	Grade  int
	Points int
	Boost  Stats
}

// basePoints is the allocation pool before talent bonuses.
const basePoints = 20

var talentTable = []Talent{
	{ID: 1, Name: "Early Riser", Desc: "mornings never hurt", Grade: gradeCommon, Points: 1},
	{ID: 2, Name: "Iron Stomach", Desc: "eat anything, regret nothing", Grade: gradeCommon, Boost: Stats{Body: 1}},
	{ID: 3, Name: "Bookworm", Desc: "reads the manual first", Grade: gradeCommon, Boost: Stats{Intellect: 1}},
	{ID: 4, Name: "Easy Smile", Desc: "people warm to you", Grade: gradeCommon, Boost: Stats{Charm: 1}},
	{ID: 5, Name: "Pocket Money", Desc: "born with a small allowance", Grade: gradeCommon, Boost: Stats{Wealth: 1}},
	{ID: 6, Name: "Thick Skin", Desc: "criticism bounces off", Grade: gradeCommon, Points: 1},
	{ID: 7, Name: "Night Owl", Desc: "the quiet hours are yours", Grade: gradeCommon, Boost: Stats{Intellect: 1}},
	{ID: 8, Name: "Green Thumb", Desc: "things grow around you", Grade: gradeCommon, Boost: Stats{Luck: 1}},
	{ID: 9, Name: "Quick Study", Desc: "half the lessons, same grades", Grade: gradeUncommon, Points: 2, Boost: Stats{Intellect: 1}},
	{ID: 10, Name: "Marathoner", Desc: "built for the long run", Grade: gradeUncommon, Boost: Stats{Body: 2}},
	{ID: 11, Name: "Silver Tongue", Desc: "talks their way in and out", Grade: gradeUncommon, Boost: Stats{Charm: 2}},
	{ID: 12, Name: "Family Business", Desc: "there is always a job waiting", Grade: gradeUncommon, Boost: Stats{Wealth: 2}},
	{ID: 13, Name: "Lucky Coin", Desc: "tails never comes up", Grade: gradeUncommon, Boost: Stats{Luck: 2}},
	{ID: 14, Name: "Cool Head", Desc: "panic is for other people", Grade: gradeUncommon, Points: 2},
	{ID: 15, Name: "Prodigy", Desc: "teachers stop preparing for you", Grade: gradeRare, Points: 3, Boost: Stats{Intellect: 2}},
	{ID: 16, Name: "Born Performer", Desc: "every room is a stage", Grade: gradeRare, Boost: Stats{Charm: 3}},
	{ID: 17, Name: "Old Money", Desc: "the estate handles itself", Grade: gradeRare, Boost: Stats{Wealth: 3}},
	{ID: 18, Name: "Wolf Constitution", Desc: "illness gives up first", Grade: gradeRare, Boost: Stats{Body: 3}},
	{ID: 19, Name: "Chosen One", Desc: "the universe keeps an eye on you", Grade: gradeLegendary, Points: 4, Boost: Stats{Luck: 3}},
	{ID: 20, Name: "Reincarnator", Desc: "this is not your first attempt", Grade: gradeLegendary, Points: 5, Boost: Stats{Intellect: 1, Body: 1}},
}

// talentOffer is the number of options presented at the start of a run.
const talentOffer = 10

// offerTalents returns the deterministic option list for a seed. The same
// seed always reproduces the same offer, which is how a stored session
// rebuilds its options between steps.
func offerTalents(seed int64) []Talent {
	rng := rand.New(rand.NewSource(seed))

	// Weighted deck: lower grades appear more often.
	var deck []int
	for i, t := range talentTable {
		copies := 4 - t.Grade
		if copies < 1 {
			copies = 1
		}
		for c := 0; c < copies; c++ {
			deck = append(deck, i)
		}
	}
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	seen := make(map[int]bool)
	var offer []Talent
	for _, idx := range deck {
		if seen[idx] {
			continue
		}
		seen[idx] = true
		offer = append(offer, talentTable[idx])
		if len(offer) == talentOffer {
			break
		}
	}
	return offer
}

// talentsByID resolves stored talent ids against the seed's offer. A miss
// means the stored session no longer matches its seed.
func talentsByID(seed int64, ids []int) ([]Talent, error) {
	byID := make(map[int]Talent)
	for _, t := range offerTalents(seed) {
		byID[t.ID] = t
	}
	talents := make([]Talent, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("talent %d not in offer for seed %d", id, seed)
		}
		talents = append(talents, t)
	}
	return talents, nil
}

// pointPool is the allocation budget for a talent selection.
func pointPool(talents []Talent) int {
	pool := basePoints
	for _, t := range talents {
		pool += t.Points
	}
	return pool
}

// lifeEvent is one thing that can happen in a simulated year.
type lifeEvent struct {
	text   string
	minAge int
	maxAge int
	// gate returns false when the stats rule the event out.
	gate   func(Stats) bool
	effect func(*Stats)
}

var lifeEvents = []lifeEvent{
	{text: "you learned to walk and immediately regretted it.", maxAge: 5},
	{text: "you made a friend over a shared snack.", maxAge: 12},
	{text: "you topped the class without trying.", minAge: 6, maxAge: 18, gate: func(s Stats) bool { return s.Intellect >= 6 }},
	{text: "school was a struggle this year.", minAge: 6, maxAge: 18, gate: func(s Stats) bool { return s.Intellect < 4 }},
	{text: "you won the school sports day.", minAge: 8, maxAge: 18, gate: func(s Stats) bool { return s.Body >= 6 }},
	{text: "someone wrote you an anonymous love letter.", minAge: 13, maxAge: 25, gate: func(s Stats) bool { return s.Charm >= 6 }},
	{text: "your startup idea actually worked.", minAge: 20, maxAge: 45, gate: func(s Stats) bool { return s.Intellect+s.Luck >= 10 }, effect: func(s *Stats) { s.Wealth += 2 }},
	{text: "the family business kept you comfortable.", minAge: 20, maxAge: 60, gate: func(s Stats) bool { return s.Wealth >= 7 }},
	{text: "you lived paycheck to paycheck.", minAge: 20, maxAge: 60, gate: func(s Stats) bool { return s.Wealth <= 2 }},
	{text: "a stranger returned your lost wallet, untouched.", gate: func(s Stats) bool { return s.Luck >= 4 }},
	{text: "you caught a bad flu.", effect: func(s *Stats) { s.Body-- }},
	{text: "you took up running and stuck with it.", minAge: 18, effect: func(s *Stats) { s.Body++ }},
	{text: "you married someone who laughs at your jokes.", minAge: 22, maxAge: 45, gate: func(s Stats) bool { return s.Charm >= 4 }},
	{text: "you were promoted past your old boss.", minAge: 25, maxAge: 55, gate: func(s Stats) bool { return s.Intellect >= 5 }, effect: func(s *Stats) { s.Wealth++ }},
	{text: "an investment quietly doubled.", minAge: 25, gate: func(s Stats) bool { return s.Wealth >= 5 && s.Luck >= 5 }, effect: func(s *Stats) { s.Wealth++ }},
	{text: "you traveled somewhere you had only seen in pictures.", minAge: 18, gate: func(s Stats) bool { return s.Wealth >= 4 }},
	{text: "nothing much happened. it was nice.", minAge: 1},
	{text: "your knees filed a formal complaint.", minAge: 50, effect: func(s *Stats) { s.Body-- }},
	{text: "grandchildren started visiting on weekends.", minAge: 60, gate: func(s Stats) bool { return s.Charm >= 3 }},
	{text: "you wrote your memoirs; two people read them.", minAge: 65, gate: func(s Stats) bool { return s.Intellect >= 5 }},
}

// maxAgeCap bounds the simulation regardless of stats.
const maxAgeCap = 100

// simulate runs one whole life from the allocated stats and returns the log,
// one line per narrated year. The run is deterministic for a given seed.
func simulate(seed int64, talents []Talent, alloc Stats) []string {
	rng := rand.New(rand.NewSource(seed + 1))

	stats := alloc
	for _, t := range talents {
		stats.Charm += t.Boost.Charm
		stats.Intellect += t.Boost.Intellect
		stats.Body += t.Boost.Body
		stats.Wealth += t.Boost.Wealth
		stats.Luck += t.Boost.Luck
	}
	stats.Luck += rng.Intn(4) // everyone is born a little lucky

	logs := []string{"you were born. it was loud."}
	age := 0
	for {
		age += 1 + rng.Intn(4)
		if age >= maxAgeCap {
			age = maxAgeCap
			break
		}

		// Old age erodes the body; luck slows the decline.
		if age > 55 && rng.Intn(10) >= stats.Luck {
			stats.Body--
		}
		if stats.Body <= 0 {
			break
		}

		if ev, ok := pickEvent(rng, stats, age); ok {
			logs = append(logs, fmt.Sprintf("age %d: %s", age, ev.text))
			if ev.effect != nil {
				ev.effect(&stats)
			}
		}
	}

	logs = append(logs, fmt.Sprintf("you passed away peacefully at age %d.", age))
	logs = append(logs, stats.String())
	logs = append(logs, lifeVerdict(stats, age))
	return logs
}

func pickEvent(rng *rand.Rand, stats Stats, age int) (lifeEvent, bool) {
	var eligible []lifeEvent
	for _, ev := range lifeEvents {
		if ev.minAge > 0 && age < ev.minAge {
			continue
		}
		if ev.maxAge > 0 && age > ev.maxAge {
			continue
		}
		if ev.gate != nil && !ev.gate(stats) {
			continue
		}
		eligible = append(eligible, ev)
	}
	if len(eligible) == 0 {
		return lifeEvent{}, false
	}
	return eligible[rng.Intn(len(eligible))], true
}

func lifeVerdict(stats Stats, age int) string {
	score := stats.Charm + stats.Intellect + stats.Body + stats.Wealth + stats.Luck + age/10
	switch {
	case score >= 40:
		return "verdict: a legendary life. the bards will need two evenings."
	case score >= 30:
		return "verdict: a remarkable life, well lived."
	case score >= 20:
		return "verdict: a decent life. no complaints filed."
	default:
		return "verdict: a rough ride. better luck next restart."
	}
}

// describeOffer renders the numbered talent list shown at session start.
func describeOffer(offer []Talent) []string {
	lines := []string{"a new life awaits. pick 3 talents from the offer:"}
	for i, t := range offer {
		lines = append(lines, fmt.Sprintf("%d. %s (%s) - %s", i+1, t.Name, gradeLabel(t.Grade), t.Desc))
	}
	lines = append(lines, "reply `.bot restart pick 1 3 5` to choose.")
	lines = append(lines, "or `.bot restart random` for a fully random run.")
	return lines
}

func talentNames(talents []Talent) string {
	names := make([]string, 0, len(talents))
	for _, t := range talents {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}
