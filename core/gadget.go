package core

// Gadget registry: pluggable predicate verifiers. An Intent's TypeID
// selects a Gadget; a DecryptionRequest's witness must satisfy every
// intent in the conjunctive list before a worker will contribute a
// partial decryption (spec §3, §4.6).

import (
	"context"
	"fmt"
	"strings"
)

// Gadget verifies that a witness satisfies one intent's statement, and
// knows how to turn this grammar's raw clause text into that statement's
// bytes (spec §4.7's parse_intent_data/verify_witness capability pair).
type Gadget interface {
	TypeID() string
	ParseIntentData(raw string) ([]byte, error)
	Verify(ctx context.Context, intent Intent, witness []byte) error
}

// Registry dispatches intents to their gadget by TypeID.
type Registry struct {
	gadgets map[string]Gadget
}

// NewRegistry builds a registry from the given gadgets, keyed by their
// own TypeID.
func NewRegistry(gadgets ...Gadget) *Registry {
	r := &Registry{gadgets: make(map[string]Gadget, len(gadgets))}
	for _, g := range gadgets {
		r.gadgets[g.TypeID()] = g
	}
	return r
}

// Verify checks witness against every intent in the list; the
// conjunction is satisfied only if all gadgets accept (spec §3's "&&"
// grammar).
func (r *Registry) Verify(ctx context.Context, intents IntentList, witnessByType map[string][]byte) error {
	for _, intent := range intents {
		g, ok := r.gadgets[intent.TypeID]
		if !ok {
			return fmt.Errorf("%w: unknown gadget %q", ErrMalformedStatement, intent.TypeID)
		}
		witness, ok := witnessByType[intent.TypeID]
		if !ok {
			return fmt.Errorf("%w: no witness supplied for %q", ErrMalformedWitness, intent.TypeID)
		}
		if err := g.Verify(ctx, intent, witness); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrVerificationFailed, intent.TypeID, err)
		}
	}
	return nil
}

// rawClause is one `TypeId(data)` conjunct before its data has been
// handed to the matching gadget for parsing.
type rawClause struct {
	TypeID string
	Data   string
}

func splitIntentClauses(statement string) ([]rawClause, error) {
	parts := strings.Split(statement, "&&")
	out := make([]rawClause, 0, len(parts))
	for _, clause := range parts {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		open := strings.IndexByte(clause, '(')
		if open == -1 || !strings.HasSuffix(clause, ")") {
			return nil, fmt.Errorf("%w: clause %q is not of the form TypeId(data)", ErrMalformedStatement, clause)
		}
		typeID := strings.TrimSpace(clause[:open])
		data := clause[open+1 : len(clause)-1]
		if typeID == "" {
			return nil, fmt.Errorf("%w: empty type id in clause %q", ErrMalformedStatement, clause)
		}
		out = append(out, rawClause{TypeID: typeID, Data: data})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty intent statement", ErrMalformedStatement)
	}
	return out, nil
}

// ParseIntentGrammar parses a conjunctive intent statement of the form
// `TypeId(data) && TypeId(data) && ...` into an IntentList, keeping each
// clause's data verbatim. This is grammar-only: the bytes it produces are
// not yet a gadget's statement encoding. Use Registry.ParseIntents to
// turn human-authored text into intents a gadget can verify (spec §4.9).
func ParseIntentGrammar(statement string) (IntentList, error) {
	clauses, err := splitIntentClauses(statement)
	if err != nil {
		return nil, err
	}
	out := make(IntentList, 0, len(clauses))
	for _, c := range clauses {
		out = append(out, Intent{TypeID: c.TypeID, Data: []byte(c.Data)})
	}
	return out, nil
}

// ParseIntents parses a conjunctive intent statement and routes each
// conjunct's raw data through the matching gadget's ParseIntentData, so
// the resulting IntentList holds real statement bytes (spec §4.7's
// parse_intent_data step, dispatched by TypeID per spec §4.9).
func (r *Registry) ParseIntents(statement string) (IntentList, error) {
	clauses, err := splitIntentClauses(statement)
	if err != nil {
		return nil, err
	}
	out := make(IntentList, 0, len(clauses))
	for _, c := range clauses {
		g, ok := r.gadgets[c.TypeID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown gadget %q", ErrMalformedStatement, c.TypeID)
		}
		data, err := g.ParseIntentData(c.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedStatement, c.TypeID, err)
		}
		out = append(out, Intent{TypeID: c.TypeID, Data: data})
	}
	return out, nil
}
