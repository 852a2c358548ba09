// Package reveal parses textual reveal specifications into filtering
// predicates.
//
// A reveal spec is a comma-separated list of terms naming what a
// filtered view should disclose:
//
//	inputs | outputs | commands | attachments | notary |
//	time-window | references | all
//	commands=Name1|Name2   (only commands with one of these names)
//	group=N                (unknown group with discriminant N)
//
// Examples:
//
//	"outputs,commands"            everything a counterparty checks
//	"commands=Transfer"           one command kind, plus its signers
//	"inputs,references,group=9"   known and unknown groups together
//
// The empty spec is valid and reveals nothing, producing an id-only
// view suitable for blind signing.
package reveal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/suffix-labs/tearoff/pkg/tx"
	"github.com/suffix-labs/tearoff/pkg/wire"
)

// Spec is a parsed reveal specification.
type Spec struct {
	all bool

	groups       map[tx.GroupIndex]bool
	commandNames map[string]bool // nil = every command, when groups[CommandsGroup]
	unknown      map[int]bool
}

// Parse parses a reveal specification.
func Parse(spec string) (*Spec, error) {
	s := &Spec{
		groups:  make(map[tx.GroupIndex]bool),
		unknown: make(map[int]bool),
	}

	spec = strings.TrimSpace(spec)
	if spec == "" {
		return s, nil
	}

	for _, term := range strings.Split(spec, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			return nil, fmt.Errorf("empty term in reveal spec")
		}

		key, value, hasValue := strings.Cut(term, "=")
		key = strings.TrimSpace(key)

		switch key {
		case "all":
			if hasValue {
				return nil, fmt.Errorf("term %q takes no value", key)
			}
			s.all = true
		case "inputs":
			if err := groupTerm(s, tx.InputsGroup, key, hasValue); err != nil {
				return nil, err
			}
		case "outputs":
			if err := groupTerm(s, tx.OutputsGroup, key, hasValue); err != nil {
				return nil, err
			}
		case "attachments":
			if err := groupTerm(s, tx.AttachmentsGroup, key, hasValue); err != nil {
				return nil, err
			}
		case "notary":
			if err := groupTerm(s, tx.NotaryGroup, key, hasValue); err != nil {
				return nil, err
			}
		case "time-window", "timewindow":
			if err := groupTerm(s, tx.TimeWindowGroup, key, hasValue); err != nil {
				return nil, err
			}
		case "references":
			if err := groupTerm(s, tx.ReferencesGroup, key, hasValue); err != nil {
				return nil, err
			}
		case "commands":
			s.groups[tx.CommandsGroup] = true
			if hasValue {
				if s.commandNames == nil {
					s.commandNames = make(map[string]bool)
				}
				for _, name := range strings.Split(value, "|") {
					name = strings.TrimSpace(name)
					if name == "" {
						return nil, fmt.Errorf("empty command name in %q", term)
					}
					s.commandNames[name] = true
				}
			}
		case "signers":
			// Signers are all-or-nothing and follow command visibility;
			// a spec cannot ask for them directly.
			return nil, fmt.Errorf("signers cannot be revealed directly; reveal commands instead")
		case "group":
			if !hasValue {
				return nil, fmt.Errorf("term %q requires a discriminant, e.g. group=9", key)
			}
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n < int(tx.KnownGroupCount) {
				return nil, fmt.Errorf("group=%s is not a valid unknown discriminant (must be >= %d)",
					value, tx.KnownGroupCount)
			}
			s.unknown[n] = true
		default:
			return nil, fmt.Errorf("unknown reveal term %q", key)
		}
	}

	return s, nil
}

func groupTerm(s *Spec, group tx.GroupIndex, key string, hasValue bool) error {
	if hasValue {
		return fmt.Errorf("term %q takes no value", key)
	}
	s.groups[group] = true
	return nil
}

// Predicate returns the filtering predicate for the spec.
func (s *Spec) Predicate() tx.Predicate {
	return func(value interface{}) bool {
		if s.all {
			return true
		}
		switch v := value.(type) {
		case wire.StateRef:
			return s.groups[tx.InputsGroup]
		case wire.ReferenceStateRef:
			return s.groups[tx.ReferencesGroup]
		case wire.OutputState:
			return s.groups[tx.OutputsGroup]
		case tx.Command:
			if !s.groups[tx.CommandsGroup] {
				return false
			}
			return s.commandNames == nil || s.commandNames[v.Data.Name]
		case wire.AttachmentID:
			return s.groups[tx.AttachmentsGroup]
		case wire.Party:
			return s.groups[tx.NotaryGroup]
		case wire.TimeWindow:
			return s.groups[tx.TimeWindowGroup]
		case wire.OpaqueComponent:
			return s.unknown[v.Group]
		default:
			return false
		}
	}
}

// RevealsAnything reports whether the spec can reveal any component.
func (s *Spec) RevealsAnything() bool {
	return s.all || len(s.groups) > 0 || len(s.unknown) > 0
}
