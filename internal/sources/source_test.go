package sources

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/oddsmerge/internal/pkg/enums"
	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
)

type stubSource struct{ name string }

func (s stubSource) Name() string { return s.name }
func (s stubSource) GatherEvents(context.Context, []enums.Sport, []string) ([]*models.Event, error) {
	return nil, nil
}
func (s stubSource) ReadEventComparisonData(*models.Event) (models.Comparison, error) {
	return models.Comparison{Source: s.name}, nil
}
func (s stubSource) UpdateBetData(context.Context, *models.Event, []int) (bool, error) {
	return false, nil
}

func TestRegistryBuildsInOrder(t *testing.T) {
	Register("Stub-A", func(Deps) (Source, error) { return stubSource{"stub-a"}, nil })
	Register("stub-b", func(Deps) (Source, error) { return stubSource{"stub-b"}, nil })
	Register("stub-broken", func(Deps) (Source, error) { return nil, errors.New("no credentials") })

	got, err := Build([]string{"stub-b", " STUB-A "}, Deps{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "stub-b", got[0].Name())
	assert.Equal(t, "stub-a", got[1].Name())

	_, err = Build([]string{"nope"}, Deps{})
	assert.ErrorContains(t, err, "unknown source")

	_, err = Build([]string{"stub-broken"}, Deps{})
	assert.ErrorContains(t, err, "no credentials")

	assert.Contains(t, AvailableNames(), "stub-a")
	assert.Panics(t, func() { Register("stub-a", func(Deps) (Source, error) { return nil, nil }) })
}

func TestErrorMessagesNameTheLabel(t *testing.T) {
	err := error(&UnknownMarketError{Source: "betfair", Label: "Half Time Score"})
	assert.Contains(t, err.Error(), "Half Time Score")

	var ume *UnknownMarketError
	assert.True(t, errors.As(err, &ume))

	arity := &ComparisonArityError{Source: "betfair", Raw: "A v B v C", Got: 5}
	assert.Contains(t, arity.Error(), "A v B v C")
}
