package models

import "testing"

func TestTrainingSimilarity_EmptyQuery(t *testing.T) {
	c := TrainingCase{IncidentDescription: "COARRI message rejected for MSKU0000001"}
	if score := c.Similarity(""); score != 0.0 {
		t.Errorf("empty query should score 0.0, got %f", score)
	}
}

func TestTrainingSimilarity_IdenticalText(t *testing.T) {
	desc := "duplicate container record detected in booking system"
	c := TrainingCase{IncidentDescription: desc}

	// Jaccard of identical sets is 1.0; with the substring bonus the raw sum
	// exceeds 1.0 and must clamp
	if score := c.Similarity(desc); score != 1.0 {
		t.Errorf("identical text should clamp to 1.0, got %f", score)
	}
}

func TestTrainingSimilarity_SubstringBonus(t *testing.T) {
	c := TrainingCase{IncidentDescription: "the COARRI translator rejected segment data for vessel arrival"}

	with := c.Similarity("COARRI translator rejected")
	without := c.Similarity("COARRI rejected translator")
	if with <= without {
		t.Errorf("verbatim substring should add a bonus: %f vs %f", with, without)
	}
}

func TestTrainingSimilarity_CategoryBonus(t *testing.T) {
	base := TrainingCase{IncidentDescription: "message stuck in queue"}
	tagged := TrainingCase{IncidentDescription: "message stuck in queue", Category: "EDI"}

	query := "edi message stuck"
	if tagged.Similarity(query) <= base.Similarity(query) {
		t.Error("category substring of query should add a bonus")
	}
}

func TestTrainingSimilarity_Bounds(t *testing.T) {
	c := TrainingCase{
		IncidentDescription: "container duplication error",
		Category:            "container",
	}
	score := c.Similarity("container duplication error")
	if score < 0.0 || score > 1.0 {
		t.Errorf("score out of [0,1]: %f", score)
	}
}

func TestAffectedSystemsRoundTrip(t *testing.T) {
	c := TrainingCase{}
	systems := []string{"PORTNET", "EDI Gateway", "Billing"}
	if err := c.SetAffectedSystems(systems); err != nil {
		t.Fatalf("SetAffectedSystems failed: %v", err)
	}

	got := c.AffectedSystems()
	if len(got) != len(systems) {
		t.Fatalf("round trip lost entries: got %v", got)
	}
	for i := range systems {
		if got[i] != systems[i] {
			t.Errorf("order not preserved at %d: got %s, want %s", i, got[i], systems[i])
		}
	}
}

func TestAffectedSystemsMalformed(t *testing.T) {
	c := TrainingCase{AffectedSystemsRaw: "{not json"}
	if got := c.AffectedSystems(); got != nil {
		t.Errorf("malformed payload should decode to nil, got %v", got)
	}
}
