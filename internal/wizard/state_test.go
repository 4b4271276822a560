package wizard

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewStoreDefaults(t *testing.T) {
	st := NewStore().Get()
	if st.EventName != DefaultEventName {
		t.Errorf("EventName = %q, want %q", st.EventName, DefaultEventName)
	}
	if st.Mapping == nil || len(st.Mapping) != 0 {
		t.Errorf("Mapping = %v, want empty map", st.Mapping)
	}
}

func TestApplyMergesOnlySetFields(t *testing.T) {
	s := NewStore()
	s.Apply(Patch{SenderName: ptr("Ada"), EmailColumn: ptr("email")})

	got := s.Apply(Patch{SenderName: ptr("Grace")})
	if got.SenderName != "Grace" {
		t.Errorf("SenderName = %q, want Grace", got.SenderName)
	}
	if got.EmailColumn != "email" {
		t.Errorf("EmailColumn = %q, want unchanged email", got.EmailColumn)
	}
	if got.EventName != DefaultEventName {
		t.Errorf("EventName = %q, want default preserved", got.EventName)
	}
}

func TestGetReturnsDeepCopy(t *testing.T) {
	s := NewStore()
	s.Apply(Patch{
		Placeholders: &[]string{"Name"},
		Mapping:      &map[string]string{"Name": "name"},
	})

	snap := s.Get()
	snap.Mapping["Name"] = "mutated"
	snap.Placeholders[0] = "mutated"

	fresh := s.Get()
	if fresh.Mapping["Name"] != "name" {
		t.Errorf("mapping leaked mutation: %v", fresh.Mapping)
	}
	if fresh.Placeholders[0] != "Name" {
		t.Errorf("placeholders leaked mutation: %v", fresh.Placeholders)
	}
}

func TestApplyInvalidatesPreviewOnInputChange(t *testing.T) {
	tests := []struct {
		name  string
		patch Patch
		want  bool // preview still valid after patch
	}{
		{"mapping change", Patch{Mapping: &map[string]string{"Name": "other"}}, false},
		{"email column change", Patch{EmailColumn: ptr("email2")}, false},
		{"event name change", Patch{EventName: ptr("New Event")}, false},
		{"sender name change", Patch{SenderName: ptr("Grace")}, false},
		{"email subject change", Patch{EmailSubject: ptr("Hi")}, false},
		{"email body change", Patch{EmailBody: ptr("Body")}, false},
		{"unrelated change", Patch{SendMessage: ptr("x")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			s.Apply(Patch{
				PreviewGenerated: ptr(true),
				PreviewURL:       ptr("http://127.0.0.1:8090/preview.pdf"),
			})

			got := s.Apply(tt.patch)
			if got.PreviewGenerated != tt.want {
				t.Errorf("PreviewGenerated = %v, want %v", got.PreviewGenerated, tt.want)
			}
			if !tt.want && got.PreviewURL != "" {
				t.Errorf("PreviewURL = %q, want cleared", got.PreviewURL)
			}
		})
	}
}

func TestApplySettingPreviewDoesNotSelfInvalidate(t *testing.T) {
	s := NewStore()
	got := s.Apply(Patch{
		Mapping:          &map[string]string{"Name": "name"},
		PreviewGenerated: ptr(true),
		PreviewURL:       ptr("http://127.0.0.1:8090/preview.pdf"),
	})
	if !got.PreviewGenerated {
		t.Error("PreviewGenerated cleared by the patch that set it")
	}
}

func TestSetMappingKeepsOtherAssignments(t *testing.T) {
	s := NewStore()
	s.SetMapping("Name", "name")
	got := s.SetMapping("Course", "course")

	want := map[string]string{"Name": "name", "Course": "course"}
	if diff := cmp.Diff(want, got.Mapping); diff != "" {
		t.Errorf("mapping mismatch (-want +got):\n%s", diff)
	}

	got = s.SetMapping("Name", "")
	if got.Mapping["Name"] != "" {
		t.Errorf("cleared assignment = %q, want empty value with key kept", got.Mapping["Name"])
	}
	if _, ok := got.Mapping["Name"]; !ok {
		t.Error("clearing an assignment removed the key")
	}
}

func TestResetEmailState(t *testing.T) {
	s := NewStore()
	s.Apply(Patch{SentEmails: ptr(true), SendMessage: ptr("Sent 5 certificates"), NeedsGmailReauth: ptr(true)})

	got := s.ResetEmailState()
	if got.SentEmails || got.SendMessage != "" {
		t.Errorf("got sentEmails=%v message=%q, want cleared", got.SentEmails, got.SendMessage)
	}
	if !got.NeedsGmailReauth {
		t.Error("NeedsGmailReauth cleared, want untouched")
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	s := NewStore()
	var seen []string
	s.Subscribe(func(st State) { seen = append(seen, st.SenderName) })

	s.Apply(Patch{SenderName: ptr("Ada")})
	s.Apply(Patch{SenderName: ptr("Grace")})

	want := []string{"Ada", "Grace"}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestStepLabels(t *testing.T) {
	want := []string{"Template", "Data", "Mapping", "Review"}
	if diff := cmp.Diff(want, StepLabels()); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	for i, label := range want {
		if Step(i).String() != label {
			t.Errorf("Step(%d).String() = %q, want %q", i, Step(i).String(), label)
		}
	}
}
