package wizard

import (
	"testing"

	"github.com/ivanoskov/market_bot/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMachine(t *testing.T) *Machine {
	t.Helper()
	m, err := NewMachine(Rules{
		Catalog:          model.NewCatalog(model.DefaultCategories),
		ContactMinDigits: 8,
		ContactMaxDigits: 15,
	})
	require.NoError(t, err)
	return m
}

func TestValidSequenceReachesCommit(t *testing.T) {
	m := newMachine(t)

	s := Start()
	assert.Equal(t, ChooseCategory, s.Step)

	steps := []struct {
		in       Input
		wantStep Step
	}{
		{Choose("Мебель"), AskName},
		{Text("  Chair "), AskPrice},
		{Text("500"), AskContact},
		{Text("12345678"), AskPhoto},
	}
	for _, st := range steps {
		var out Outcome
		s, out = m.Advance(s, st.in)
		require.IsType(t, StepPrompt{}, out)
		assert.Equal(t, st.wantStep, s.Step)
		assert.Equal(t, st.wantStep, out.(StepPrompt).Step)
	}

	next, out := m.Advance(s, Media(true))
	require.IsType(t, ReadyToCommit{}, out)
	assert.Equal(t, AskPhoto, next.Step, "state stays at ask_photo until the commit succeeds")

	draft := out.(ReadyToCommit).Draft
	assert.Equal(t, model.Category("Мебель"), draft.Category)
	assert.Equal(t, "  Chair ", draft.Name, "name is stored exactly as entered")
	assert.True(t, draft.Price.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "12345678", draft.Contact)

	done := Complete(next)
	assert.Equal(t, Idle, done.Step)
	assert.Equal(t, model.Listing{}, done.Draft)
}

func TestInvalidInputDoesNotAdvance(t *testing.T) {
	m := newMachine(t)

	filled := model.Listing{Category: "Одежда", Name: "Coat", Price: decimal.NewFromInt(10), Contact: "123456789"}

	tests := []struct {
		name  string
		state State
		in    Input
		hint  Hint
	}{
		{"unknown category", State{Step: ChooseCategory}, Choose("Книги"), HintChooseCategory},
		{"text instead of category", State{Step: ChooseCategory}, Text("Мебель"), HintChooseCategory},
		{"empty name", State{Step: AskName, Draft: model.Listing{Category: "Одежда"}}, Text("   "), HintEnterName},
		{"photo instead of name", State{Step: AskName}, Media(true), HintEnterName},
		{"price not a number", State{Step: AskPrice, Draft: model.Listing{Name: "Coat"}}, Text("дорого"), HintPriceFormat},
		{"negative price", State{Step: AskPrice}, Text("-1"), HintPriceFormat},
		{"empty price", State{Step: AskPrice}, Text(""), HintPriceFormat},
		{"short contact", State{Step: AskContact}, Text("1234567"), HintContactFormat},
		{"long contact", State{Step: AskContact}, Text("1234567890123456"), HintContactFormat},
		{"contact with plus", State{Step: AskContact}, Text("+79991234567"), HintContactFormat},
		{"contact with spaces inside", State{Step: AskContact}, Text("999 123 4567"), HintContactFormat},
		{"text on photo step", State{Step: AskPhoto, Draft: filled}, Text("вот фото"), HintSendPhoto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, out := m.Advance(tt.state, tt.in)
			assert.Equal(t, tt.state, next)
			require.IsType(t, ValidationError{}, out)
			assert.Equal(t, tt.hint, out.(ValidationError).Hint)
			assert.Equal(t, tt.state.Step, out.(ValidationError).Step)
		})
	}
}

func TestNonImageOnPhotoStep(t *testing.T) {
	m := newMachine(t)
	s := State{Step: AskPhoto, Draft: model.Listing{Name: "Coat"}}

	next, out := m.Advance(s, Media(false))
	assert.Equal(t, s, next)
	assert.Equal(t, UnsupportedMedia{Hint: HintImageOnly}, out)
}

func TestPriceFormats(t *testing.T) {
	m := newMachine(t)

	for _, in := range []string{"0", "499.99", "1500,50", " 42 "} {
		next, out := m.Advance(State{Step: AskPrice}, Text(in))
		assert.IsType(t, StepPrompt{}, out, in)
		assert.Equal(t, AskContact, next.Step, in)
		assert.False(t, next.Draft.Price.IsNegative(), in)
	}

	next, _ := m.Advance(State{Step: AskPrice}, Text("1500,50"))
	assert.Equal(t, "1500.5", next.Draft.Price.String())
}

func TestNameKeptVerbatim(t *testing.T) {
	m := newMachine(t)

	for _, in := range []string{"Chair", " Стул  Венский ", "Профиль"} {
		next, out := m.Advance(State{Step: AskName}, Text(in))
		require.IsType(t, StepPrompt{}, out, in)
		assert.Equal(t, in, next.Draft.Name)
	}
}

func TestContactBounds(t *testing.T) {
	m := newMachine(t)

	for _, in := range []string{"12345678", "123456789012345"} {
		next, out := m.Advance(State{Step: AskContact}, Text(in))
		assert.IsType(t, StepPrompt{}, out, in)
		assert.Equal(t, in, next.Draft.Contact)
	}
}

func TestIdleRejectsWizardInput(t *testing.T) {
	m := newMachine(t)

	for _, in := range []Input{Text("Chair"), Media(true), Choose("Мебель")} {
		next, out := m.Advance(State{Step: Idle}, in)
		assert.Equal(t, Idle, next.Step)
		assert.Equal(t, NotInFlow{Hint: HintStartFromMenu}, out)
	}
}

func TestResetFromAnyStep(t *testing.T) {
	draft := model.Listing{Category: "Мебель", Name: "Chair"}
	for _, step := range []Step{Idle, ChooseCategory, AskName, AskPrice, AskContact, AskPhoto} {
		s := Reset(State{Step: step, Draft: draft})
		assert.Equal(t, State{Step: Idle}, s, step.String())
	}
}

func TestCompleteOnlyFromPhotoStep(t *testing.T) {
	s := State{Step: AskPrice, Draft: model.Listing{Name: "Chair"}}
	assert.Equal(t, s, Complete(s))
}

func TestNewMachineRejectsBadRules(t *testing.T) {
	_, err := NewMachine(Rules{Catalog: model.NewCatalog(nil), ContactMinDigits: 8, ContactMaxDigits: 15})
	assert.Error(t, err)

	_, err = NewMachine(Rules{Catalog: model.NewCatalog(model.DefaultCategories), ContactMinDigits: 10, ContactMaxDigits: 8})
	assert.Error(t, err)
}
