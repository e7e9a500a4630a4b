package llm

import "testing"

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "plain object",
			input:    `{"incident_type": "EDI Processing"}`,
			expected: `{"incident_type": "EDI Processing"}`,
		},
		{
			name:     "object with surrounding prose",
			input:    "Here is the analysis:\n{\"incident_type\": \"EDI Processing\"}\nHope that helps.",
			expected: `{"incident_type": "EDI Processing"}`,
		},
		{
			name:     "think tags stripped",
			input:    "<think>reasoning here</think>{\"a\": 1}",
			expected: `{"a": 1}`,
		},
		{
			name:     "nested objects",
			input:    `{"a": {"b": {"c": 1}}}`,
			expected: `{"a": {"b": {"c": 1}}}`,
		},
		{
			name:     "braces inside strings",
			input:    `{"msg": "literal } brace"}`,
			expected: `{"msg": "literal } brace"}`,
		},
		{
			name:    "no json",
			input:   "I could not classify this incident.",
			wantErr: true,
		},
		{
			name:    "unbalanced",
			input:   `{"a": 1`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseJSONResponse(t *testing.T) {
	type payload struct {
		IncidentType string `json:"incident_type"`
		Urgency      string `json:"urgency"`
	}

	got, err := ParseJSONResponse[payload]("analysis:\n{\"incident_type\": \"Container Management\", \"urgency\": \"High\"}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IncidentType != "Container Management" || got.Urgency != "High" {
		t.Errorf("unexpected result: %+v", got)
	}

	if _, err := ParseJSONResponse[payload]("not json at all"); err == nil {
		t.Error("expected error for non-JSON input")
	}
}
