package transform

import (
	"regexp"
	"strings"
)

// CascadeStep identifies which heuristic recovered an award artist.
type CascadeStep int

const (
	StepUnresolved CascadeStep = iota
	StepParenthesized
	StepWholeCredits
	StepFirstSegment
	StepRolePairs
)

func (s CascadeStep) String() string {
	switch s {
	case StepParenthesized:
		return "parenthesized"
	case StepWholeCredits:
		return "whole_credits"
	case StepFirstSegment:
		return "first_segment"
	case StepRolePairs:
		return "role_pairs"
	default:
		return "unresolved"
	}
}

var parenGroup = regexp.MustCompile(`\((.*?)\)`)

// ResolveAwardArtist recovers an artist name from a free-text credits field.
// Heuristics are tried in order and the first non-empty result wins:
//
//  1. contents of the first parenthesized group
//  2. the whole text when it has no ';' or ','
//  3. the first ';' segment when it has no ',' and names no role
//  4. every "<name>, <role>" pair, names joined with ", "
//
// A nil result means the record cannot be attributed.
func (r *Rules) ResolveAwardArtist(credits *string) (*string, CascadeStep) {
	if credits == nil {
		return nil, StepUnresolved
	}
	text := *credits

	if m := parenGroup.FindStringSubmatch(text); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			return &name, StepParenthesized
		}
	}

	if !strings.ContainsAny(text, ";,") {
		if name := strings.TrimSpace(text); name != "" {
			return &name, StepWholeCredits
		}
	}

	first := strings.TrimSpace(strings.SplitN(text, ";", 2)[0])
	if first != "" && !strings.Contains(first, ",") && !r.namesRole(first) {
		return &first, StepFirstSegment
	}

	var names []string
	for _, m := range r.rolePairs.FindAllStringSubmatch(text, -1) {
		if name := strings.TrimSpace(m[1]); name != "" {
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		joined := strings.Join(names, ", ")
		return &joined, StepRolePairs
	}

	return nil, StepUnresolved
}

func (r *Rules) namesRole(s string) bool {
	lower := strings.ToLower(s)
	for _, role := range r.roles {
		if strings.Contains(lower, role) {
			return true
		}
	}
	return false
}
