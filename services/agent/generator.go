package agent

import (
	"context"

	"studybuddy/models"
)

// FragmentKind distinguishes user-visible text from internal tool
// activity in the generated stream.
type FragmentKind string

const (
	FragmentText FragmentKind = "text"
	FragmentTool FragmentKind = "tool"
)

// Fragment is one incremental chunk of generated output.
type Fragment struct {
	Kind FragmentKind
	Text string
}

// Request carries the full ordered conversation history, ending with the
// utterance being answered.
type Request struct {
	History []models.Turn
}

// Generator is the opaque text-producing backend. Generate returns a
// lazy, finite fragment sequence; the channel is closed once the
// sequence is exhausted. A backend may invoke tools internally and
// interleave tool fragments with text fragments, consumers are expected
// to ignore non-text fragments. Backends stop emitting and close the
// channel when ctx is done.
type Generator interface {
	Generate(ctx context.Context, req Request) (<-chan Fragment, error)
}
