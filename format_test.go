package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.October, 17, 12, 0, 0, 0, time.Local)

	t.Run("same year", func(t *testing.T) {
		result := formatTime(time.Date(2026, time.March, 15, 10, 30, 0, 0, time.Local), now)
		assert.Equal(t, "Mar 15 10:30", result)
	})

	t.Run("different year", func(t *testing.T) {
		result := formatTime(time.Date(2020, time.December, 25, 8, 0, 0, 0, time.Local), now)
		assert.Equal(t, "Dec 25  2020", result)
	})

	t.Run("zero", func(t *testing.T) {
		assert.Equal(t, "-", formatTime(time.Time{}, now))
	})
}

func TestPrintTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	printTable(&buf, []string{"OPENED", "PATH"}, [][]string{
		{"Mar 15 10:30", "/notes/a.md"},
		{"-", "/b.md"},
	})

	want := "OPENED        PATH\n" +
		"Mar 15 10:30  /notes/a.md\n" +
		"-             /b.md\n"
	assert.Equal(t, want, buf.String())
}
