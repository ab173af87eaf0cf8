package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/brewcrew/barista/internal/store"
)

func TestImport(t *testing.T) {
	csv := `first_name,last_name,slack_id,department
Ada,Lovelace,U1,Engineering
Grace,Hopper,U2,Research
NoID,Here,,Sales
`
	st := store.NewMemoryStore()
	summary, err := Import(context.Background(), st, strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if summary.Imported != 2 || summary.Skipped != 1 {
		t.Errorf("summary = %+v, want 2 imported 1 skipped", summary)
	}

	user, err := st.GetUser(context.Background(), "U2")
	if err != nil {
		t.Fatal(err)
	}
	if user.FullName() != "Grace Hopper" || user.Department != "Research" {
		t.Errorf("unexpected user: %+v", user)
	}
}

func TestImport_UpsertsExisting(t *testing.T) {
	st := store.NewMemoryStore()
	_ = st.UpsertUser(context.Background(), &store.User{SlackID: "U1", FirstName: "Ada", Department: "Old"})

	csv := "first_name,last_name,slack_id,department\nAda,Lovelace,U1,Engineering\n"
	if _, err := Import(context.Background(), st, strings.NewReader(csv)); err != nil {
		t.Fatal(err)
	}

	user, _ := st.GetUser(context.Background(), "U1")
	if user.Department != "Engineering" {
		t.Errorf("existing user not updated: %+v", user)
	}
}

func TestImport_BadHeader(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{name: "wrong columns", csv: "name,slack_id\nAda,U1\n"},
		{name: "reordered", csv: "slack_id,first_name,last_name,department\nU1,Ada,Lovelace,Eng\n"},
		{name: "empty file", csv: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Import(context.Background(), store.NewMemoryStore(), strings.NewReader(tt.csv))
			if err == nil {
				t.Error("expected error")
			}
		})
	}
}
