package views

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"ragdesk/internal/store"
)

func typeInto(m *FormModel, s string) {
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestForm_Submit(t *testing.T) {
	tests := []struct {
		name  string
		modal store.Modal
		first string
		want  tea.Msg
	}{
		{
			name:  "new collection",
			modal: store.NewCollectionModal{},
			first: "notes",
			want:  SubmitCollectionMsg{Name: "notes"},
		},
		{
			name:  "new file keeps folder",
			modal: store.NewFileModal{Folder: "guides"},
			first: "a.md",
			want:  SubmitFileMsg{Filename: "a.md", Folder: "guides"},
		},
		{
			name:  "add page",
			modal: store.AddPageModal{Folder: "web"},
			first: "https://example.com",
			want:  SubmitPageMsg{URL: "https://example.com", Folder: "web"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewFormModel(tt.modal)
			if !m.Matches(tt.modal) {
				t.Fatal("form does not match its modal")
			}
			typeInto(m, tt.first)
			if got := run(m.Update(tea.KeyMsg{Type: tea.KeyEnter})); got != tt.want {
				t.Errorf("submit = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestForm_InvalidInputStaysOpen(t *testing.T) {
	tests := []struct {
		name    string
		modal   store.Modal
		first   string
		wantErr string
	}{
		{"empty name", store.NewCollectionModal{}, "", "collection name is required"},
		{"bad extension", store.NewFileModal{}, "a.exe", "not allowed"},
		{"bad url", store.AddPageModal{}, "example.com", "expected an http(s) URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewFormModel(tt.modal)
			typeInto(m, tt.first)
			if cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
				t.Fatalf("invalid form submitted %#v", cmd())
			}
			if !strings.Contains(m.form.Error(0), tt.wantErr) {
				t.Errorf("field error = %q, want %q", m.form.Error(0), tt.wantErr)
			}
			if !strings.Contains(m.View(), tt.wantErr) {
				t.Error("error not rendered")
			}

			typeInto(m, "x")
			if m.form.Error(0) != "" {
				t.Error("editing did not clear the error")
			}
		})
	}
}

func TestForm_FocusesFirstInvalidField(t *testing.T) {
	m := NewFormModel(store.NewFileModal{Folder: "../up"})
	typeInto(m, "a.md")
	if cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Fatal("submitted with an invalid folder")
	}
	if m.form.Focused != 1 || m.form.Error(1) == "" {
		t.Errorf("focused = %d, folder error = %q", m.form.Focused, m.form.Error(1))
	}
}

func TestForm_CancelAndNonFormModal(t *testing.T) {
	m := NewFormModel(store.NewCollectionModal{})
	if got := run(m.Update(tea.KeyMsg{Type: tea.KeyEsc})); got != (CancelModalMsg{}) {
		t.Errorf("esc = %#v", got)
	}
	if NewFormModel(store.DeleteConfirmationModal{}) != nil {
		t.Error("expected nil form for a confirmation modal")
	}
	var none *FormModel
	if none.Matches(store.NewCollectionModal{}) {
		t.Error("nil form matched")
	}
}
