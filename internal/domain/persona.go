// Package domain contains core domain types for the newsroom simulator.
package domain

// Persona is a fixed editorial identity driving one research agent.
// Persona values are static configuration and never mutated at runtime.
type Persona struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Tagline string `json:"tagline"`
	Stance  string `json:"stance"`
	Style   string `json:"style"`
	Tone    string `json:"tone"`
}
