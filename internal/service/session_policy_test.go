package service

import (
	"testing"

	"golfacademy/training-planner/internal/domain"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSessionTypeForWeekdays(t *testing.T) {
	p := SessionPolicy{WednesdayTestProbability: DefaultWednesdayTestProbability}
	player := primitive.NewObjectID()

	cases := map[string]domain.SessionType{
		"2025-06-02": domain.SessionTraining, // Monday
		"2025-06-03": domain.SessionTraining,
		"2025-06-05": domain.SessionTraining,
		"2025-06-06": domain.SessionRecovery, // Friday
	}
	for d, want := range cases {
		got, ok := p.SessionTypeFor(player, date(d))
		assert.True(t, ok, d)
		assert.Equal(t, want, got, d)
	}

	for _, d := range []string{"2025-06-07", "2025-06-08"} {
		_, ok := p.SessionTypeFor(player, date(d))
		assert.False(t, ok, d)
	}
}

func TestWednesdayDrawIsStable(t *testing.T) {
	p := SessionPolicy{WednesdayTestProbability: DefaultWednesdayTestProbability}
	player := primitive.NewObjectID()
	wed := date("2025-06-04")

	first, ok := p.SessionTypeFor(player, wed)
	assert.True(t, ok)
	for i := 0; i < 20; i++ {
		got, _ := p.SessionTypeFor(player, wed)
		assert.Equal(t, first, got)
	}
	assert.Contains(t, []domain.SessionType{domain.SessionTest, domain.SessionTraining}, first)
}

func TestWednesdayDrawBounds(t *testing.T) {
	player := primitive.NewObjectID()
	wed := date("2025-06-04")

	never := SessionPolicy{WednesdayTestProbability: 0}
	got, _ := never.SessionTypeFor(player, wed)
	assert.Equal(t, domain.SessionTraining, got)

	always := SessionPolicy{WednesdayTestProbability: 1}
	got, _ = always.SessionTypeFor(player, wed)
	assert.Equal(t, domain.SessionTest, got)
}

func TestWednesdayDrawRate(t *testing.T) {
	p := SessionPolicy{WednesdayTestProbability: 0.3}
	tests, total := 0, 0
	wed := date("2025-01-01")
	for i := 0; i < 40; i++ {
		player := primitive.NewObjectID()
		for w := 0; w < 50; w++ {
			got, _ := p.SessionTypeFor(player, wed.AddDate(0, 0, 7*w))
			if got == domain.SessionTest {
				tests++
			}
			total++
		}
	}
	rate := float64(tests) / float64(total)
	assert.InDelta(t, 0.3, rate, 0.05)
}

func TestSeededDrawRange(t *testing.T) {
	player := primitive.NewObjectID()
	for i := 0; i < 100; i++ {
		v := seededDraw(player, date("2025-01-01").AddDate(0, 0, i))
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}
