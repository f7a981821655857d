package classifier

import (
	"fmt"
	"slices"
)

type voting struct {
	hard    bool
	members []Model
}

func newVoting(a Artifact) (*voting, error) {
	spec := a.Voting
	if spec == nil {
		return nil, fmt.Errorf("voting artifact needs a voting section")
	}
	v := &voting{}
	switch spec.Mode {
	case "", "soft":
	case "hard":
		v.hard = true
	default:
		return nil, fmt.Errorf("unknown voting mode %q", spec.Mode)
	}
	if len(spec.Members) == 0 {
		return nil, fmt.Errorf("voting needs at least one member")
	}
	for i, member := range spec.Members {
		if len(member.Features) == 0 {
			member.Features = a.Features
		} else if !slices.Equal(member.Features, a.Features) {
			return nil, fmt.Errorf("member %d features differ from the ensemble's", i)
		}
		if member.Name == "" {
			member.Name = fmt.Sprintf("%s[%d]", a.Name, i)
		}
		m, err := Build(member)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		v.members = append(v.members, m)
	}
	return v, nil
}

func (v *voting) positive(x []float64) (float64, error) {
	sum := 0.0
	for i, m := range v.members {
		proba, err := m.PredictProba(x)
		if err != nil {
			return 0, fmt.Errorf("member %d: %w", i, err)
		}
		if v.hard {
			if proba[1] > 0.5 {
				sum++
			}
			continue
		}
		sum += proba[1]
	}
	return sum / float64(len(v.members)), nil
}
