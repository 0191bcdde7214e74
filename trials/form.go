package trials

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/ruteri/confidential-trials/interfaces"
)

// FormFields holds the raw values typed into the creation form.
type FormFields struct {
	Name        string `json:"name"`
	Age         string `json:"age"`
	Condition   string `json:"condition"`
	Phase       string `json:"phase"`
	Description string `json:"description"`
}

// Form is the creation form state.
type Form struct {
	Open       bool       `json:"open"`
	Submitting bool       `json:"submitting"`
	Fields     FormFields `json:"fields"`
}

// sanitized keeps only digits in the numeric fields.
func (f FormFields) sanitized() FormFields {
	f.Age = digitsOnly(f.Age)
	f.Condition = digitsOnly(f.Condition)
	f.Phase = digitsOnly(f.Phase)
	return f
}

// Input converts the raw fields; unparseable numbers become 0.
func (f FormFields) Input() interfaces.TrialInput {
	return interfaces.TrialInput{
		Name:           f.Name,
		Age:            uint32(parseOrZero(f.Age, 32)),
		ConditionScore: parseOrZero(f.Condition, 64),
		TreatmentPhase: parseOrZero(f.Phase, 64),
		Description:    f.Description,
	}
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return -1
		}
		return r
	}, s)
}

func parseOrZero(s string, bitSize int) uint64 {
	v, err := strconv.ParseUint(s, 10, bitSize)
	if err != nil {
		return 0
	}
	return v
}
