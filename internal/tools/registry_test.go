package tools

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intentd/internal/domain"
)

func TestApply_UnknownTool(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()

	next, _, err := r.Apply(doc, "no_such_tool", nil)
	var unknown *domain.UnknownToolError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "no_such_tool", unknown.Name)
	assert.Nil(t, next)
}

func TestApply_MissingRequiredArgument(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()
	before := doc.Clone()

	next, _, err := r.Apply(doc, "upsert_meaning_entry", map[string]any{"term": "widget"})
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "definition", validation.Field)
	assert.Nil(t, next)
	assert.Empty(t, cmp.Diff(before, doc))
}

func TestApply_WrongArgumentType(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()

	_, _, err := r.Apply(doc, "upsert_meaning_entry", map[string]any{
		"term":       "widget",
		"definition": "a small UI element",
		"sources":    "not a list",
	})
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "sources", validation.Field)
}

func TestApply_UnexpectedArgument(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()

	_, _, err := r.Apply(doc, "reset_intent_confirmation", map[string]any{"bogus": true})
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "bogus", validation.Field)
}

func TestApply_ReadOnlyToolReturnsNoDocument(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()

	next, result, err := r.Apply(doc, "get_state_summary", nil)
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Contains(t, result.(string), "Meaning index entries: 0")
}

func TestApply_MutationHappensOnCloneOnly(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()

	next, _, err := r.Apply(doc, "upsert_meaning_entry", map[string]any{
		"term":       "widget",
		"definition": "a small UI element",
	})
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.NotSame(t, doc, next)
	assert.Empty(t, doc.Entities)
	assert.Len(t, next.Entities, 1)
}

func TestInputSchema(t *testing.T) {
	r := NewRegistry()
	tool, ok := r.Lookup("create_task")
	require.True(t, ok)

	schema := tool.InputSchema()
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.ElementsMatch(t, []string{"title", "description"}, schema["required"])

	properties := schema["properties"].(map[string]any)
	assert.Contains(t, properties, "dependsOn")
	dependsOn := properties["dependsOn"].(map[string]any)
	assert.Equal(t, "array", dependsOn["type"])
}

func TestList_RegistrationOrderStable(t *testing.T) {
	r := NewRegistry()
	listed := r.List()
	require.NotEmpty(t, listed)
	assert.Equal(t, "create_task", listed[0].Name)

	names := make(map[string]bool, len(listed))
	for _, tool := range listed {
		assert.False(t, names[tool.Name], "duplicate tool %s", tool.Name)
		names[tool.Name] = true
	}
	for _, name := range []string{
		"update_task", "update_task_status", "delete_task",
		"add_task_dependency", "remove_task_dependency",
		"upsert_meaning_entry", "remove_meaning_entry",
		"request_clarification", "set_intent_confirmation",
		"resolve_intent_confirmation", "reset_intent_confirmation",
		"append_history_item", ReplaceDocumentTool,
	} {
		assert.True(t, names[name], "missing tool %s", name)
	}
}
