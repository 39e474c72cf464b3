// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/lets-meet/internal/calendar"
	mailer "github.com/Shivanand-hulikatti/lets-meet/internal/mail"
	"github.com/Shivanand-hulikatti/lets-meet/internal/model"
	"github.com/Shivanand-hulikatti/lets-meet/internal/repository"
	"github.com/google/uuid"
)

// ErrInvalidInput marks requests rejected by validation.
var ErrInvalidInput = errors.New("invalid input")

// ErrNoResponses is returned when a calendar is requested before anyone has
// marked a time and no explicit time was given.
var ErrNoResponses = errors.New("no availability has been submitted yet")

const (
	maxPotentialDates = 100
	maxCodeAttempts   = 5
	maxTextLength     = 2000
)

// EventStore persists events.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetByCode(ctx context.Context, code string) (*model.Event, error)
}

// AvailabilityStore persists availability responses.
type AvailabilityStore interface {
	Add(ctx context.Context, a *model.AvailabilityResponse) error
	ListByEvent(ctx context.Context, eventID string) ([]model.AvailabilityResponse, error)
}

// StatsPublisher receives fresh statistics after every accepted submission.
type StatsPublisher interface {
	Publish(code string, stats model.EventStats)
}

// MailQueue accepts emails for background delivery.
type MailQueue interface {
	Enqueue(req mailer.SendRequest) error
}

// Deps bundles the collaborators of an EventService.
// Publisher and Mailer are optional.
type Deps struct {
	Events       EventStore
	Availability AvailabilityStore
	Calendar     *calendar.Builder
	Publisher    StatsPublisher
	Mailer       MailQueue

	// PublicURL is the frontend base URL used for links in emails.
	PublicURL       string
	MeetingDuration time.Duration
}

// EventService orchestrates event-related business operations.
type EventService struct {
	events       EventStore
	availability AvailabilityStore
	calendar     *calendar.Builder
	publisher    StatsPublisher
	mailer       MailQueue
	publicURL    string
	duration     time.Duration
	logger       *slog.Logger

	now     func() time.Time
	newCode func() (string, error)
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(deps Deps, logger *slog.Logger) *EventService {
	cal := deps.Calendar
	if cal == nil {
		cal = calendar.NewBuilder("letsmeet.app", deps.MeetingDuration)
	}
	duration := deps.MeetingDuration
	if duration <= 0 {
		duration = calendar.DefaultDuration
	}
	return &EventService{
		events:       deps.Events,
		availability: deps.Availability,
		calendar:     cal,
		publisher:    deps.Publisher,
		mailer:       deps.Mailer,
		publicURL:    deps.PublicURL,
		duration:     duration,
		logger:       logger,
		now:          time.Now,
		newCode:      newEventCode,
	}
}

// CreateEvent validates the request, assigns a fresh code and persists the event.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.CreatorName = strings.TrimSpace(req.CreatorName)
	req.CreatorEmail = strings.TrimSpace(req.CreatorEmail)

	if req.Name == "" {
		return nil, invalid("event name is required")
	}
	if req.CreatorName == "" {
		return nil, invalid("creator_name is required")
	}
	if req.CreatorEmail == "" {
		return nil, invalid("creator_email is required")
	}
	if !isValidEmail(req.CreatorEmail) {
		return nil, invalid("creator_email is not a valid email address")
	}
	if len(req.Name) > maxTextLength || len(req.Description) > maxTextLength {
		return nil, invalid("name and description must be at most %d characters", maxTextLength)
	}
	if len(req.PotentialDates) == 0 {
		return nil, invalid("at least one potential date is required")
	}
	if len(req.PotentialDates) > maxPotentialDates {
		return nil, invalid("at most %d potential dates are allowed", maxPotentialDates)
	}

	now := s.now()
	dates := make([]time.Time, 0, len(req.PotentialDates))
	seen := make(map[int64]bool, len(req.PotentialDates))
	for _, d := range req.PotentialDates {
		d = normalizeTime(d)
		if !d.After(now) {
			return nil, invalid("potential date %s is not in the future", d.Format(time.RFC3339))
		}
		if seen[d.UnixMicro()] {
			return nil, invalid("potential date %s is listed more than once", d.Format(time.RFC3339))
		}
		seen[d.UnixMicro()] = true
		dates = append(dates, d)
	}

	event := &model.Event{
		ID:             uuid.New().String(),
		Name:           req.Name,
		Description:    req.Description,
		CreatorName:    req.CreatorName,
		CreatorEmail:   req.CreatorEmail,
		PotentialDates: dates,
		CreatedAt:      normalizeTime(now),
	}

	for attempt := 1; ; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, err
		}
		event.Code = code

		err = s.events.Create(ctx, event)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicateCode) || attempt == maxCodeAttempts {
			return nil, fmt.Errorf("create event: %w", err)
		}
		s.logger.Warn("event_code_collision", "code", code, "attempt", attempt)
	}

	s.logger.Info("event_created", "code", event.Code, "dates", len(event.PotentialDates))
	return event, nil
}

// GetEvent returns a single event by its shareable code.
func (s *EventService) GetEvent(ctx context.Context, code string) (*model.Event, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, repository.ErrNotFound
	}
	event, err := s.events.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// SubmitAvailability records one participant's answer. Every submission is
// stored as a new response; earlier answers from the same person are kept.
func (s *EventService) SubmitAvailability(ctx context.Context, code string, req model.SubmitAvailabilityRequest) (*model.AvailabilityResponse, error) {
	req.ParticipantName = strings.TrimSpace(req.ParticipantName)
	req.ParticipantEmail = strings.TrimSpace(req.ParticipantEmail)
	req.CustomAvailability = strings.TrimSpace(req.CustomAvailability)

	if req.ParticipantName == "" {
		return nil, invalid("participant_name is required")
	}
	if req.ParticipantEmail != "" && !isValidEmail(req.ParticipantEmail) {
		return nil, invalid("participant_email is not a valid email address")
	}
	if len(req.CustomAvailability) > maxTextLength {
		return nil, invalid("custom_availability must be at most %d characters", maxTextLength)
	}

	event, err := s.GetEvent(ctx, code)
	if err != nil {
		return nil, err
	}

	chosen := make(map[int64]bool, len(req.AvailableTimes))
	for _, t := range req.AvailableTimes {
		t = normalizeTime(t)
		if !event.HasDate(t) {
			return nil, invalid("%s is not one of the event's potential dates", t.Format(time.RFC3339))
		}
		chosen[t.UnixMicro()] = true
	}
	times := make([]time.Time, 0, len(chosen))
	for _, d := range event.PotentialDates {
		if chosen[d.UnixMicro()] {
			times = append(times, d)
		}
	}

	resp := &model.AvailabilityResponse{
		ID:                 uuid.New().String(),
		EventID:            event.ID,
		ParticipantName:    req.ParticipantName,
		ParticipantEmail:   req.ParticipantEmail,
		AvailableTimes:     times,
		CustomAvailability: req.CustomAvailability,
		CreatedAt:          normalizeTime(s.now()),
	}
	if err := s.availability.Add(ctx, resp); err != nil {
		return nil, fmt.Errorf("submit availability: %w", err)
	}
	s.logger.Info("availability_submitted", "code", event.Code, "times", len(times))

	if s.publisher != nil {
		stats, err := s.statsFor(ctx, event)
		if err != nil {
			s.logger.Warn("stats_publish_failed", "code", event.Code, "error", err)
		} else {
			s.publisher.Publish(event.Code, *stats)
		}
	}
	return resp, nil
}

// ListAvailability returns every response submitted for an event.
func (s *EventService) ListAvailability(ctx context.Context, code string) ([]model.AvailabilityResponse, error) {
	event, err := s.GetEvent(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.availability.ListByEvent(ctx, event.ID)
}

// Stats recomputes the event statistics from the stored responses.
func (s *EventService) Stats(ctx context.Context, code string) (*model.EventStats, error) {
	event, err := s.GetEvent(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.statsFor(ctx, event)
}

func (s *EventService) statsFor(ctx context.Context, event *model.Event) (*model.EventStats, error) {
	responses, err := s.availability.ListByEvent(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}
	stats := computeStats(event, responses)
	return &stats, nil
}

// CalendarFile renders the event as an iCalendar file. When at is nil the
// most popular time is used.
func (s *EventService) CalendarFile(ctx context.Context, code string, at *time.Time) (*model.Event, []byte, error) {
	event, start, err := s.meetingTime(ctx, code, at)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.calendar.File(event, start)
	if err != nil {
		return nil, nil, err
	}
	return event, data, nil
}

// SendCalendarInvite validates the request and queues an emailed invite for
// the most popular time. Delivery happens in the background.
func (s *EventService) SendCalendarInvite(ctx context.Context, code, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalid("email is required")
	}
	if !isValidEmail(email) {
		return invalid("email is not a valid email address")
	}
	if s.mailer == nil {
		return errors.New("calendar invites are not configured")
	}

	event, start, err := s.meetingTime(ctx, code, nil)
	if err != nil {
		return err
	}
	ics, err := s.calendar.Invite(event, start, email)
	if err != nil {
		return err
	}

	invite := mailer.Invite{
		EventName:     event.Name,
		Description:   event.Description,
		OrganizerName: event.CreatorName,
		Start:         start,
		Duration:      s.duration,
		EventURL:      s.eventURL(event.Code),
	}
	html, err := invite.RenderHTML()
	if err != nil {
		return err
	}

	err = s.mailer.Enqueue(mailer.SendRequest{
		To:      []string{email},
		Subject: invite.Subject(),
		HTML:    html,
		ReplyTo: event.CreatorEmail,
		Attachments: []mailer.Attachment{{
			Filename:    calendar.Filename(event),
			ContentType: "text/calendar; method=REQUEST; charset=utf-8",
			Content:     ics,
		}},
	})
	if err != nil {
		return fmt.Errorf("queue calendar invite: %w", err)
	}
	s.logger.Info("calendar_invite_queued", "code", event.Code)
	return nil
}

// meetingTime resolves the event and the time its calendar entries use.
func (s *EventService) meetingTime(ctx context.Context, code string, at *time.Time) (*model.Event, time.Time, error) {
	event, err := s.GetEvent(ctx, code)
	if err != nil {
		return nil, time.Time{}, err
	}
	if at != nil {
		t := normalizeTime(*at)
		if !event.HasDate(t) {
			return nil, time.Time{}, invalid("%s is not one of the event's potential dates", t.Format(time.RFC3339))
		}
		return event, t, nil
	}

	stats, err := s.statsFor(ctx, event)
	if err != nil {
		return nil, time.Time{}, err
	}
	if stats.MostPopularTime == nil {
		return nil, time.Time{}, ErrNoResponses
	}
	return event, *stats.MostPopularTime, nil
}

func (s *EventService) eventURL(code string) string {
	if s.publicURL == "" {
		return ""
	}
	u, err := url.JoinPath(s.publicURL, "event", code)
	if err != nil {
		return ""
	}
	return u
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// isValidEmail accepts a bare address such as "ada@example.com".
func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}
