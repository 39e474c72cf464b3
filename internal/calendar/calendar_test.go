package calendar

import (
	"bytes"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/lets-meet/internal/model"
	"github.com/emersion/go-ical"
)

func sampleEvent() *model.Event {
	return &model.Event{
		ID:           "e1",
		Code:         "K7Q2ZP",
		Name:         "Team lunch",
		Description:  "Somewhere near the office",
		CreatorName:  "Ada",
		CreatorEmail: "ada@example.com",
	}
}

func decode(t *testing.T, data []byte) *ical.Calendar {
	t.Helper()
	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil {
		t.Fatalf("decode calendar: %v\n%s", err, data)
	}
	return cal
}

func TestBuilderFile_ContainsEventAtChosenTime(t *testing.T) {
	b := NewBuilder("letsmeet.app", 0)
	b.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }
	start := time.Date(2030, 5, 6, 17, 30, 0, 0, time.UTC)

	data, err := b.File(sampleEvent(), start)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	cal := decode(t, data)

	if m, _ := cal.Props.Text(ical.PropMethod); m != "PUBLISH" {
		t.Errorf("METHOD = %q, want PUBLISH", m)
	}
	events := cal.Events()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]

	if s, _ := ev.Props.Text(ical.PropSummary); s != "Team lunch" {
		t.Errorf("SUMMARY = %q, want %q", s, "Team lunch")
	}
	if uid, _ := ev.Props.Text(ical.PropUID); uid != "letsmeet-K7Q2ZP@letsmeet.app" {
		t.Errorf("UID = %q", uid)
	}
	gotStart, err := ev.DateTimeStart(time.UTC)
	if err != nil {
		t.Fatalf("DTSTART: %v", err)
	}
	if !gotStart.Equal(start) {
		t.Errorf("DTSTART = %v, want %v", gotStart, start)
	}
	gotEnd, err := ev.DateTimeEnd(time.UTC)
	if err != nil {
		t.Fatalf("DTEND: %v", err)
	}
	if want := start.Add(DefaultDuration); !gotEnd.Equal(want) {
		t.Errorf("DTEND = %v, want %v", gotEnd, want)
	}
	org := ev.Props.Get(ical.PropOrganizer)
	if org == nil || org.Value != "mailto:ada@example.com" || org.Params.Get(ical.ParamCommonName) != "Ada" {
		t.Errorf("ORGANIZER = %+v", org)
	}
}

func TestBuilderInvite_AddsAttendeeAndRequestMethod(t *testing.T) {
	b := NewBuilder("example.org", 30*time.Minute)
	start := time.Date(2030, 5, 6, 9, 0, 0, 0, time.FixedZone("NZST", 12*3600))

	data, err := b.Invite(sampleEvent(), start, "bea@example.com")
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	cal := decode(t, data)

	if m, _ := cal.Props.Text(ical.PropMethod); m != "REQUEST" {
		t.Errorf("METHOD = %q, want REQUEST", m)
	}
	ev := cal.Events()[0]
	att := ev.Props.Get(ical.PropAttendee)
	if att == nil || att.Value != "mailto:bea@example.com" {
		t.Fatalf("ATTENDEE = %+v", att)
	}
	gotEnd, err := ev.DateTimeEnd(time.UTC)
	if err != nil {
		t.Fatalf("DTEND: %v", err)
	}
	if want := start.Add(30 * time.Minute); !gotEnd.Equal(want) {
		t.Errorf("DTEND = %v, want %v", gotEnd, want)
	}
}

func TestFilename(t *testing.T) {
	cases := map[string]string{
		"Team lunch":     "Team_lunch.ics",
		"  a/b \"c\"  ":  "ab_c.ics",
		"   ":            "event.ics",
		"Sprint Review!": "Sprint_Review!.ics",
	}
	for in, want := range cases {
		if got := Filename(&model.Event{Name: in}); got != want {
			t.Errorf("Filename(%q) = %q, want %q", in, got, want)
		}
	}
}
