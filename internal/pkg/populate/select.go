package populate

import (
	"slices"
	"sync"

	"github.com/fredbi/chartviz/internal/pkg/client"
)

// NoValue is the value of the placeholder option of a select list.
const NoValue = "--NOVALUE--"

// Choice is an option of a select list.
type Choice struct {
	Value string
	Title string
}

// Select is a select list whose options are replaced by asynchronous loads.
//
// Each load takes a generation number: the options delivered by a load are dropped when a
// newer load has started since.
type Select struct {
	mu      sync.Mutex
	choices []Choice
	gen     uint64
}

// NewSelect builds a select list with the given options.
func NewSelect(choices ...Choice) *Select {
	return &Select{choices: slices.Clone(choices)}
}

// Choices returns the current options.
func (s *Select) Choices() []Choice {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.choices)
}

func (s *Select) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++

	return s.gen
}

// replace swaps every non-placeholder option for the datasets. It returns false when the load
// has been superseded.
func (s *Select) replace(gen uint64, datasets []client.Dataset) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return false
	}

	choices := make([]Choice, 0, len(datasets)+1)
	for _, c := range s.choices {
		if c.Value == NoValue {
			choices = append(choices, c)
		}
	}

	for _, d := range datasets {
		choices = append(choices, Choice{Value: d.Value, Title: d.Title})
	}

	s.choices = choices

	return true
}
