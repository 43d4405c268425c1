package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicySetJSONRoundTrip(t *testing.T) {
	sensitivity := StringValue("high")
	cutoff := TimeValue(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	regions := SetValue("us-east", "eu-west")
	limit := NumberValue(42)

	original := PolicySet{
		ID:                 "documents",
		Version:            3,
		Description:        "document access",
		CombiningAlgorithm: DenyOverrides,
		CreatedAt:          time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Rules: []Rule{
			{
				ID:     "deny-sensitive",
				Effect: EffectDeny,
				Target: &Expression{
					Kind: ExprAll,
					Children: []*Expression{
						{Kind: ExprCompare, Category: CategoryResource, Attribute: "sensitivity", Operator: OpEq, Value: &sensitivity},
						{Kind: ExprNot, Child: &Expression{
							Kind: ExprCompare, Category: CategoryEnvironment, Attribute: "region", Operator: OpIn, Value: &regions,
						}},
					},
				},
				Condition: &Expression{
					Kind: ExprCompare, Category: CategoryEnvironment, Attribute: "request_time", Operator: OpGte, Value: &cutoff,
				},
			},
			{
				ID:        "allow-small-batches",
				Effect:    EffectAllow,
				Condition: &Expression{Kind: ExprCompare, Category: CategoryResource, Attribute: "batch_size", Operator: OpLte, Value: &limit},
			},
		},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded PolicySet
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, original.ID, decoded.ID)
	assert.Equal(t, original.Version, decoded.Version)
	assert.Equal(t, original.CombiningAlgorithm, decoded.CombiningAlgorithm)
	require.Len(t, decoded.Rules, len(original.Rules))
	assert.Equal(t, original.Rules[0], decoded.Rules[0])
	assert.Equal(t, original.Rules[1], decoded.Rules[1])
}

func TestValueUnmarshalInfersKinds(t *testing.T) {
	var m AttributeMap
	raw := `{
		"department": "engineering",
		"age": 34,
		"authenticated": true,
		"roles": ["viewer", "auditor"],
		"login_at": "2024-06-01T09:00:00Z"
	}`
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	assert.Equal(t, KindString, m["department"].Kind)
	assert.Equal(t, KindNumber, m["age"].Kind)
	assert.Equal(t, 34.0, m["age"].Num)
	assert.Equal(t, KindBool, m["authenticated"].Kind)
	assert.Equal(t, KindStringSet, m["roles"].Kind)
	assert.Equal(t, []string{"viewer", "auditor"}, m["roles"].Set)
	assert.Equal(t, KindTime, m["login_at"].Kind)
	assert.Equal(t, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC), m["login_at"].Time)
}

func TestValueUnmarshalRejectsUnsupportedShapes(t *testing.T) {
	var v Value
	assert.Error(t, json.Unmarshal([]byte(`null`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"nested": true}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`[1, 2]`), &v))
}

func TestCloneIsDeep(t *testing.T) {
	roles := SetValue("viewer")
	set := PolicySet{
		ID:                 "documents",
		CombiningAlgorithm: FirstApplicable,
		Rules: []Rule{
			{
				ID:     "allow-viewers",
				Effect: EffectAllow,
				Target: &Expression{Kind: ExprCompare, Category: CategorySubject, Attribute: "roles", Operator: OpContains, Value: &roles},
			},
		},
	}

	cp := set.Clone()
	cp.Rules[0].ID = "changed"
	cp.Rules[0].Target.Value.Set[0] = "admin"

	assert.Equal(t, "allow-viewers", set.Rules[0].ID)
	assert.Equal(t, "viewer", set.Rules[0].Target.Value.Set[0])
}
