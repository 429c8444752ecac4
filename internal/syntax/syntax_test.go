package syntax

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/uibuilder/internal/codegen"
	"github.com/matthewbaird/uibuilder/internal/layout"
)

func TestCheck_AcceptsGeneratedModule(t *testing.T) {
	nodes, err := layout.ValidateJSON([]byte(`[
		{"id":"f","type":"form","props":{"style":{"gap":8}},"children":[
			{"id":"i","type":"input","props":{"placeholder":"Name","required":true}},
			{"id":"t","type":"text","props":{"children":"1 < 2 {ok}"}},
			{"id":"c","type":"container","children":[]},
			{"id":"b","type":"button","props":{"children":"Send"}}
		]}
	]`))
	require.NoError(t, err)

	for _, placeholders := range []bool{false, true} {
		res := codegen.Generate(nodes, codegen.TitleCaseResolver(), codegen.Options{Placeholders: placeholders})
		assert.NoError(t, Check(context.Background(), []byte(res.Code)))
	}
}

func TestCheck_ReportsPosition(t *testing.T) {
	src := "import React from 'react';\nconst x = (1 + ;\n"
	err := Check(context.Background(), []byte(src))

	var synErr *Error
	require.True(t, errors.As(err, &synErr), "got %v", err)
	assert.Equal(t, uint32(1), synErr.Row)
	assert.Contains(t, synErr.Error(), "at ")
}

func TestCheck_Empty(t *testing.T) {
	assert.NoError(t, Check(context.Background(), []byte("")))
}
