package workflow

import (
	"context"
	"errors"
	"testing"
)

func wizardBuilder() *Builder {
	b := NewBuilder()
	b.Permit(StateUpload, TriggerFilesAccepted, StateExtraction)
	b.Permit(StateExtraction, TriggerFilesAccepted, StateExtraction)
	b.Permit(StateExtraction, TriggerReview, StateReview)
	b.Permit(StateExtraction, TriggerBack, StateUpload)
	b.Permit(StateReview, TriggerConfirm, StateConfirmation)
	b.Permit(StateReview, TriggerBack, StateExtraction)
	b.Permit(StateConfirmation, TriggerBack, StateReview)
	for _, s := range []State{StateUpload, StateExtraction, StateReview, StateConfirmation} {
		b.Permit(s, TriggerStartOver, StateUpload)
	}
	return b
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"upload", StateUpload, true},
		{"extraction", StateExtraction, true},
		{"review", StateReview, true},
		{"confirmation", StateConfirmation, true},
		{"invalid state", State("INVALID"), false},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_String(t *testing.T) {
	if got := StateUpload.String(); got != "UPLOAD" {
		t.Errorf("State.String() = %v, want %v", got, "UPLOAD")
	}
}

func TestTrigger_String(t *testing.T) {
	if got := TriggerStartOver.String(); got != "START_OVER" {
		t.Errorf("Trigger.String() = %v, want %v", got, "START_OVER")
	}
}

func TestBuilder_PermitPanicsOnInvalidState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() should panic on invalid state")
		}
	}()

	NewBuilder().Permit(State("INVALID"), TriggerReview, StateReview)
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	NewBuilder().Build(State("INVALID"))
}

func TestStateMachine_ForwardPath(t *testing.T) {
	machine := wizardBuilder().Build(StateUpload)
	ctx := context.Background()

	steps := []struct {
		trigger Trigger
		want    State
	}{
		{TriggerFilesAccepted, StateExtraction},
		{TriggerReview, StateReview},
		{TriggerConfirm, StateConfirmation},
	}

	for _, step := range steps {
		if !machine.CanFire(step.trigger) {
			t.Fatalf("CanFire(%s) = false in state %s", step.trigger, machine.State())
		}
		if err := machine.Fire(ctx, step.trigger); err != nil {
			t.Fatalf("Fire(%s) failed: %v", step.trigger, err)
		}
		if machine.State() != step.want {
			t.Fatalf("State after Fire(%s) = %v, want %v", step.trigger, machine.State(), step.want)
		}
	}
}

func TestStateMachine_BackNavigation(t *testing.T) {
	machine := wizardBuilder().Build(StateConfirmation)
	ctx := context.Background()

	for _, want := range []State{StateReview, StateExtraction, StateUpload} {
		if err := machine.Fire(ctx, TriggerBack); err != nil {
			t.Fatalf("Fire(BACK) failed: %v", err)
		}
		if machine.State() != want {
			t.Fatalf("State after BACK = %v, want %v", machine.State(), want)
		}
	}

	// No further back from upload
	if err := machine.Fire(ctx, TriggerBack); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire(BACK) from upload = %v, want ErrInvalidTransition", err)
	}
}

func TestStateMachine_StartOverFromAnyState(t *testing.T) {
	for _, initial := range []State{StateUpload, StateExtraction, StateReview, StateConfirmation} {
		t.Run(initial.String(), func(t *testing.T) {
			machine := wizardBuilder().Build(initial)
			if err := machine.Fire(context.Background(), TriggerStartOver); err != nil {
				t.Fatalf("Fire(START_OVER) failed: %v", err)
			}
			if machine.State() != StateUpload {
				t.Errorf("State = %v, want %v", machine.State(), StateUpload)
			}
		})
	}
}

func TestStateMachine_SelfTransitionOnAppend(t *testing.T) {
	machine := wizardBuilder().Build(StateExtraction)
	if err := machine.Fire(context.Background(), TriggerFilesAccepted); err != nil {
		t.Fatalf("Fire(FILES_ACCEPTED) failed: %v", err)
	}
	if machine.State() != StateExtraction {
		t.Errorf("State = %v, want %v", machine.State(), StateExtraction)
	}
}

func TestStateMachine_ForwardSkipIsRejected(t *testing.T) {
	machine := wizardBuilder().Build(StateUpload)

	if err := machine.Fire(context.Background(), TriggerConfirm); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire(CONFIRM) from upload = %v, want ErrInvalidTransition", err)
	}
	if machine.State() != StateUpload {
		t.Errorf("failed Fire must not change state, got %v", machine.State())
	}
}

func TestStateMachine_GuardBlocksTransition(t *testing.T) {
	allowed := false
	b := NewBuilder()
	b.PermitIf(StateExtraction, TriggerReview, StateReview, func(ctx context.Context) bool {
		return allowed
	})
	machine := b.Build(StateExtraction)

	if err := machine.Fire(context.Background(), TriggerReview); !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("Fire with failing guard = %v, want ErrGuardFailed", err)
	}

	allowed = true
	if err := machine.Fire(context.Background(), TriggerReview); err != nil {
		t.Fatalf("Fire with passing guard failed: %v", err)
	}
	if machine.State() != StateReview {
		t.Errorf("State = %v, want %v", machine.State(), StateReview)
	}
}

func TestStateMachine_PermittedTriggers(t *testing.T) {
	machine := wizardBuilder().Build(StateExtraction)

	triggers := machine.PermittedTriggers()
	want := map[Trigger]bool{
		TriggerFilesAccepted: true,
		TriggerReview:        true,
		TriggerBack:          true,
		TriggerStartOver:     true,
	}
	if len(triggers) != len(want) {
		t.Fatalf("PermittedTriggers() returned %d triggers, want %d", len(triggers), len(want))
	}
	for _, trig := range triggers {
		if !want[trig] {
			t.Errorf("unexpected trigger %s", trig)
		}
	}
}
