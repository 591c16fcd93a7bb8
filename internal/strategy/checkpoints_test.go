package strategy

import (
	"testing"
	"time"

	"github.com/alejandrodnm/lowvolsignal/internal/domain"
	"github.com/stretchr/testify/assert"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestMonthlyCheckpoints_LastTradingDay(t *testing.T) {
	dates := []time.Time{
		d(2024, 1, 30), d(2024, 1, 31),
		d(2024, 2, 28), d(2024, 2, 29),
		d(2024, 3, 28), // 29 viernes festivo, 30-31 fin de semana
		d(2024, 4, 1), d(2024, 4, 30),
	}
	assert.Equal(t, []int{1, 3, 4, 6}, MonthlyCheckpoints(dates, domain.CheckpointLastTradingDay))
}

func TestMonthlyCheckpoints_OpenFinalMonthExcluded(t *testing.T) {
	dates := []time.Time{d(2024, 1, 31), d(2024, 2, 15)}
	assert.Equal(t, []int{0}, MonthlyCheckpoints(dates, domain.CheckpointLastTradingDay))
}

func TestMonthlyCheckpoints_FinalMonthClosedByWeekend(t *testing.T) {
	// 2024-08-30 es viernes; 31 es sábado.
	dates := []time.Time{d(2024, 8, 29), d(2024, 8, 30)}
	assert.Equal(t, []int{1}, MonthlyCheckpoints(dates, domain.CheckpointLastTradingDay))
}

func TestMonthlyCheckpoints_ExactMonthEnd(t *testing.T) {
	dates := []time.Time{
		d(2024, 1, 31),
		d(2024, 3, 28), // 31 es domingo: el mes se salta
		d(2024, 4, 30),
	}
	assert.Equal(t, []int{0, 2}, MonthlyCheckpoints(dates, domain.CheckpointExactMonthEnd))
}

func TestMonthlyCheckpoints_Empty(t *testing.T) {
	assert.Nil(t, MonthlyCheckpoints(nil, domain.CheckpointLastTradingDay))
}

func TestMonthClosed(t *testing.T) {
	assert.True(t, monthClosed(d(2024, 12, 31)))
	assert.False(t, monthClosed(d(2024, 12, 30)))
	assert.True(t, monthClosed(d(2024, 11, 29))) // 30 es sábado
}
