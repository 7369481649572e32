package webquery_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/webquery-go/webquery"
)

func Test_GetConsistencyLevel(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		expected webquery.ConsistencyLevel
		label    string
	}{
		{name: "default", ctx: context.Background(), expected: webquery.StrongConsistency, label: "strong"},
		{name: "eventual", ctx: webquery.WithEventualConsistency(context.Background()), expected: webquery.EventualConsistency, label: "eventual"},
		{
			name:     "strong_overrides_eventual",
			ctx:      webquery.WithStrongConsistency(webquery.WithEventualConsistency(context.Background())),
			expected: webquery.StrongConsistency,
			label:    "strong",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// act
			level := webquery.GetConsistencyLevel(tc.ctx)

			// assert
			assert.Equal(t, tc.expected, level)
			assert.Equal(t, tc.label, level.String())
		})
	}
}
