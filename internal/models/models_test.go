package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedMap(t *testing.T) {
	t.Run("keeps document order", func(t *testing.T) {
		var m OrderedMap[int]
		require.NoError(t, json.Unmarshal([]byte(`{"zeta":3,"alpha":1,"mid":2}`), &m))

		assert.Equal(t, []string{"zeta", "alpha", "mid"}, m.Keys())
		assert.Equal(t, []int{3, 1, 2}, m.Values())
		assert.Equal(t, 3, m.Len())

		v, ok := m.Get("alpha")
		assert.True(t, ok)
		assert.Equal(t, 1, v)

		_, ok = m.Get("missing")
		assert.False(t, ok)
	})

	t.Run("mixed values", func(t *testing.T) {
		var m OrderedMap[any]
		require.NoError(t, json.Unmarshal([]byte(`{"total_budget":250000,"status":"active"}`), &m))

		entries := m.Entries()
		require.Len(t, entries, 2)
		assert.Equal(t, float64(250000), entries[0].Value)
		assert.Equal(t, "active", entries[1].Value)
	})

	t.Run("series values", func(t *testing.T) {
		var m OrderedMap[[]float64]
		require.NoError(t, json.Unmarshal([]byte(`{"b":[1,2],"a":[3]}`), &m))
		assert.Equal(t, []string{"b", "a"}, m.Keys())
		assert.Equal(t, []float64{3}, m.Values()[1])
	})

	t.Run("null is empty", func(t *testing.T) {
		var m OrderedMap[int]
		require.NoError(t, json.Unmarshal([]byte(`null`), &m))
		assert.Zero(t, m.Len())
	})

	t.Run("rejects non objects", func(t *testing.T) {
		var m OrderedMap[int]
		assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &m))
		assert.Error(t, json.Unmarshal([]byte(`{"a":"x"}`), &m))
	})

	t.Run("marshals in order", func(t *testing.T) {
		m := NewOrderedMap(Entry[int]{Key: "z", Value: 1}, Entry[int]{Key: "a", Value: 2})
		out, err := json.Marshal(m)
		require.NoError(t, err)
		assert.Equal(t, `{"z":1,"a":2}`, string(out))

		out, err = json.Marshal(OrderedMap[int]{})
		require.NoError(t, err)
		assert.Equal(t, `{}`, string(out))
	})
}

func TestTimestamp(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339", `"2024-01-15T10:30:00Z"`, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"zone-less", `"2024-01-15T10:30:00"`, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"zone-less fraction", `"2024-01-15T10:30:00.123456"`, time.Date(2024, 1, 15, 10, 30, 0, 123456000, time.UTC)},
		{"date only", `"2024-01-15"`, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tc.input), &ts))
			assert.True(t, tc.want.Equal(ts.Time), "got %s", ts.Time)
		})
	}

	t.Run("invalid", func(t *testing.T) {
		var ts Timestamp
		assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
		assert.Error(t, json.Unmarshal([]byte(`42`), &ts))
	})

	t.Run("optional field", func(t *testing.T) {
		var p Policy
		require.NoError(t, json.Unmarshal([]byte(`{"id":1,"start_date":"2024-01-01T00:00:00","end_date":null}`), &p))
		assert.Nil(t, p.EndDate)
		assert.Equal(t, 2024, p.StartDate.Year())
	})
}

func TestDecodeDashboardMetrics(t *testing.T) {
	body := `{
		"total_policies": 4,
		"active_policies": 2,
		"total_budget": 2500000,
		"average_roi": 12.345,
		"high_risk_policies": 1,
		"policies_by_status": {"active": 2, "draft": 1, "completed": 1},
		"policies_by_category": {"health": 3, "education": 1},
		"recent_activities": [
			{"policy_id": 3, "policy_name": "Clean Air", "action": "created", "timestamp": "2024-02-01T09:00:00.5"}
		]
	}`

	var m DashboardMetrics
	require.NoError(t, json.Unmarshal([]byte(body), &m))

	assert.Equal(t, []string{"active", "draft", "completed"}, m.PoliciesByStatus.Keys())
	assert.Equal(t, []string{"health", "education"}, m.PoliciesByCategory.Keys())
	require.Len(t, m.RecentActivities, 1)
	assert.Equal(t, 3, m.RecentActivities[0].PolicyID)
	assert.Equal(t, time.February, m.RecentActivities[0].Timestamp.Month())
}

func TestNewPolicyValidate(t *testing.T) {
	start, err := ParseTimestamp("2024-03-01")
	require.NoError(t, err)
	before, err := ParseTimestamp("2024-02-01")
	require.NoError(t, err)

	valid := NewPolicy{
		Name:        "Clean Air",
		Description: "Reduce emissions",
		Category:    "environment",
		StartDate:   start,
		Budget:      250000,
	}
	assert.NoError(t, valid.Validate())

	t.Run("missing name", func(t *testing.T) {
		p := valid
		p.Name = ""
		assert.Error(t, p.Validate())
	})

	t.Run("negative budget", func(t *testing.T) {
		p := valid
		p.Budget = -1
		assert.Error(t, p.Validate())
	})

	t.Run("missing start date", func(t *testing.T) {
		p := valid
		p.StartDate = Timestamp{}
		assert.Error(t, p.Validate())
	})

	t.Run("end before start", func(t *testing.T) {
		p := valid
		p.EndDate = &before
		assert.Error(t, p.Validate())
	})
}
