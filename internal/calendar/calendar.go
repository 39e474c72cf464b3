// Package calendar renders events as iCalendar (RFC 5545) documents.
package calendar

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/lets-meet/internal/model"
	"github.com/emersion/go-ical"
)

const (
	// ContentType is the MIME type served with generated files.
	ContentType = "text/calendar; charset=utf-8"

	productID = "-//Let's Meet Calendar//letsmeet.app//"

	methodPublish = "PUBLISH"
	methodRequest = "REQUEST"
)

// DefaultDuration is used when no meeting length is configured.
const DefaultDuration = time.Hour

// Builder produces calendar documents for events.
type Builder struct {
	domain   string
	duration time.Duration
	now      func() time.Time
}

// NewBuilder returns a Builder that stamps UIDs with domain and gives
// every meeting the supplied duration.
func NewBuilder(domain string, duration time.Duration) *Builder {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Builder{domain: domain, duration: duration, now: time.Now}
}

// File renders a downloadable calendar holding the event at start.
func (b *Builder) File(ev *model.Event, start time.Time) ([]byte, error) {
	return b.encode(methodPublish, b.vevent(ev, start))
}

// Invite renders a meeting request addressed to attendee.
func (b *Builder) Invite(ev *model.Event, start time.Time, attendee string) ([]byte, error) {
	ve := b.vevent(ev, start)
	p := ical.NewProp(ical.PropAttendee)
	p.Value = "mailto:" + attendee
	p.Params.Set(ical.ParamParticipationStatus, "NEEDS-ACTION")
	p.Params.Set(ical.ParamRSVP, "TRUE")
	ve.Props.Add(p)
	return b.encode(methodRequest, ve)
}

// UID is the stable identifier shared by every document for an event, so
// calendar clients update an existing entry instead of duplicating it.
func (b *Builder) UID(ev *model.Event) string {
	return fmt.Sprintf("letsmeet-%s@%s", ev.Code, b.domain)
}

func (b *Builder) vevent(ev *model.Event, start time.Time) *ical.Component {
	start = start.UTC()

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, b.UID(ev))
	ve.Props.SetText(ical.PropSummary, ev.Name)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, b.now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, start)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(b.duration))
	if ev.Description != "" {
		ve.Props.SetText(ical.PropDescription, ev.Description)
	}
	if ev.CreatorEmail != "" {
		p := ical.NewProp(ical.PropOrganizer)
		p.Value = "mailto:" + ev.CreatorEmail
		if ev.CreatorName != "" {
			p.Params.Set(ical.ParamCommonName, ev.CreatorName)
		}
		ve.Props.Add(p)
	}
	return ve
}

func (b *Builder) encode(method string, ve *ical.Component) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropMethod, method)
	cal.Children = append(cal.Children, ve)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename is the attachment name offered for an event's calendar file.
func Filename(ev *model.Event) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ' ':
			return '_'
		case '/', '\\', '"', '\r', '\n':
			return -1
		}
		return r
	}, strings.TrimSpace(ev.Name))
	if name == "" {
		name = "event"
	}
	return name + ".ics"
}
