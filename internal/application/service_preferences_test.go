package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/topcoder-platform/email-preferences-service/internal/application"
	"github.com/topcoder-platform/email-preferences-service/internal/domain"
	"github.com/topcoder-platform/email-preferences-service/internal/ports"
)

var catalog = domain.Catalog{"Dev Newsletter", "Design Newsletter", "Data Science Newsletter"}

type fakeIdentity struct {
	user  domain.UserIdentity
	err   error
	calls int
}

func (f *fakeIdentity) GetUser(_ context.Context, _ string) (domain.UserIdentity, error) {
	f.calls++
	return f.user, f.err
}

type fakeDirectory struct {
	tags  []domain.Tag
	found bool

	getCalls    int
	createCalls int
	metaCalls   int
	mutateCalls int

	created   ports.CreateContactParams
	mutations []domain.TagMutation
}

func (f *fakeDirectory) GetTags(_ context.Context, _ string) ([]domain.Tag, bool, error) {
	f.getCalls++
	return f.tags, f.found, nil
}

func (f *fakeDirectory) CreateContact(_ context.Context, params ports.CreateContactParams) error {
	f.createCalls++
	f.created = params
	return nil
}

func (f *fakeDirectory) UpdateContactMetadata(_ context.Context, _ ports.UpdateContactMetadataParams) error {
	f.metaCalls++
	return nil
}

func (f *fakeDirectory) ApplyTagMutations(_ context.Context, _ string, mutations []domain.TagMutation) error {
	f.mutateCalls++
	f.mutations = mutations
	return nil
}

type fakeStore struct {
	rec   domain.PreferenceRecord
	found bool

	getCalls    int
	insertCalls int
	patchCalls  int

	inserted  domain.PreferenceRecord
	lastPatch ports.SnapshotPatch
}

func (f *fakeStore) Get(_ context.Context, _ string) (domain.PreferenceRecord, bool, error) {
	f.getCalls++
	return f.rec, f.found, nil
}

func (f *fakeStore) Insert(_ context.Context, rec domain.PreferenceRecord) error {
	f.insertCalls++
	f.inserted = rec
	return nil
}

func (f *fakeStore) UpdatePartial(_ context.Context, _ string, patch ports.SnapshotPatch) error {
	f.patchCalls++
	f.lastPatch = patch
	return nil
}

type publishedEvent struct {
	eventType string
	payload   []byte
	key       string
}

type fakePublisher struct {
	events []publishedEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, eventType string, payload []byte, partitionKey string) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{eventType: eventType, payload: payload, key: partitionKey})
	return nil
}

type harness struct {
	service   *application.Service
	identity  *fakeIdentity
	directory *fakeDirectory
	store     *fakeStore
	publisher *fakePublisher
}

func newHarness(directory *fakeDirectory, store *fakeStore) *harness {
	identity := &fakeIdentity{user: domain.UserIdentity{
		Email:     "jane.doe@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
	}}
	publisher := &fakePublisher{}
	service := application.NewService(application.Dependencies{
		Config:    application.Config{Catalog: catalog},
		Identity:  identity,
		Directory: directory,
		Snapshots: store,
		Publisher: publisher,
	})
	return &harness{service: service, identity: identity, directory: directory, store: store, publisher: publisher}
}

func desiredRecord(userID string, subs domain.SubscriptionState) domain.PreferenceRecord {
	return domain.PreferenceRecord{
		ObjectID: userID,
		Email: domain.EmailPreferences{
			CreatedBy:     "tester",
			FirstName:     "Jane",
			LastName:      "Doe",
			UpdatedBy:     "tester",
			Subscriptions: subs,
		},
	}
}

type envelope struct {
	Topic      string          `json:"topic"`
	Originator string          `json:"originator"`
	Timestamp  string          `json:"timestamp"`
	Payload    json.RawMessage `json:"payload"`
}

func decodeEnvelope(t *testing.T, raw []byte) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode event envelope: %v", err)
	}
	return env
}

func TestGetPreferencesProvisionsUnknownContact(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeDirectory{found: false}, &fakeStore{})
	view, err := h.service.GetPreferences(context.Background(), "23124329")
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	if h.directory.createCalls != 1 {
		t.Fatalf("expected one contact creation, got %d", h.directory.createCalls)
	}
	if len(h.directory.created.Tags) != 0 {
		t.Fatalf("expected contact created without tags, got %v", h.directory.created.Tags)
	}
	for _, name := range catalog {
		if view.Email.Subscriptions[name] {
			t.Fatalf("expected %q to be false for new contact", name)
		}
	}
	if view.ObjectID != "23124329" {
		t.Fatalf("unexpected objectId %q", view.ObjectID)
	}
	if len(h.publisher.events) != 1 {
		t.Fatalf("expected exactly one creation event, got %d", len(h.publisher.events))
	}
	env := decodeEnvelope(t, h.publisher.events[0].payload)
	if env.Topic != "preference.created" {
		t.Fatalf("unexpected event topic %q", env.Topic)
	}
}

func TestGetPreferencesDecodesExistingTags(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeDirectory{
		found: true,
		tags:  []domain.Tag{{Name: "Dev Newsletter", Status: domain.TagActive}},
	}, &fakeStore{})
	view, err := h.service.GetPreferences(context.Background(), "23124329")
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	if !view.Email.Subscriptions["Dev Newsletter"] {
		t.Fatalf("expected Dev Newsletter to be subscribed")
	}
	if view.Email.Subscriptions["Design Newsletter"] || view.Email.Subscriptions["Data Science Newsletter"] {
		t.Fatalf("expected other subscriptions to be false")
	}
	if h.directory.createCalls != 0 {
		t.Fatalf("expected no contact creation, got %d", h.directory.createCalls)
	}
	if len(h.publisher.events) != 0 {
		t.Fatalf("expected no events on plain read, got %d", len(h.publisher.events))
	}
}

func TestGetPreferencesPropagatesIdentityNotFound(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeDirectory{found: true}, &fakeStore{})
	h.identity.err = domain.ErrNotFound
	if _, err := h.service.GetPreferences(context.Background(), "23124329"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if h.directory.getCalls != 0 {
		t.Fatalf("expected no directory call after identity failure")
	}
}

func TestUpdatePreferencesCreatesContactDirectly(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeDirectory{found: false}, &fakeStore{})
	desired := desiredRecord("8547899", domain.SubscriptionState{
		"Dev Newsletter": true, "Design Newsletter": false, "Data Science Newsletter": true,
	})
	if err := h.service.UpdatePreferences(context.Background(), "8547899", desired); err != nil {
		t.Fatalf("update preferences: %v", err)
	}

	if h.directory.createCalls != 1 {
		t.Fatalf("expected one contact creation, got %d", h.directory.createCalls)
	}
	wantTags := []string{"Dev Newsletter", "Data Science Newsletter"}
	if len(h.directory.created.Tags) != len(wantTags) {
		t.Fatalf("expected tags %v, got %v", wantTags, h.directory.created.Tags)
	}
	for i, name := range wantTags {
		if h.directory.created.Tags[i].Name != name {
			t.Fatalf("tag %d: got %q, want %q", i, h.directory.created.Tags[i].Name, name)
		}
	}
	if h.directory.metaCalls != 0 || h.directory.mutateCalls != 0 {
		t.Fatalf("expected no metadata sync or tag mutations on direct creation")
	}
	if h.store.insertCalls != 1 {
		t.Fatalf("expected snapshot insert, got %d inserts and %d patches", h.store.insertCalls, h.store.patchCalls)
	}
	if h.store.inserted.ID != "8547899" {
		t.Fatalf("expected inserted record id to be the user id, got %q", h.store.inserted.ID)
	}

	if len(h.publisher.events) != 2 {
		t.Fatalf("expected creation then update event, got %d events", len(h.publisher.events))
	}
	if h.publisher.events[0].eventType != "preference.created" || h.publisher.events[1].eventType != "preference.updated" {
		t.Fatalf("unexpected event order: %s, %s", h.publisher.events[0].eventType, h.publisher.events[1].eventType)
	}

	created := decodeEnvelope(t, h.publisher.events[0].payload)
	var createdPayload struct {
		Email struct {
			Subscriptions map[string]bool `json:"subscriptions"`
		} `json:"email"`
		ObjectID string `json:"objectId"`
	}
	if err := json.Unmarshal(created.Payload, &createdPayload); err != nil {
		t.Fatalf("decode creation payload: %v", err)
	}
	if !createdPayload.Email.Subscriptions["Dev Newsletter"] || createdPayload.Email.Subscriptions["Design Newsletter"] {
		t.Fatalf("unexpected creation payload subscriptions: %v", createdPayload.Email.Subscriptions)
	}

	updated := decodeEnvelope(t, h.publisher.events[1].payload)
	var updatedPayload map[string]json.RawMessage
	if err := json.Unmarshal(updated.Payload, &updatedPayload); err != nil {
		t.Fatalf("decode update payload: %v", err)
	}
	if _, ok := updatedPayload["id"]; ok {
		t.Fatalf("update payload must not carry storage id")
	}
	if _, ok := updatedPayload["updatedAt"]; ok {
		t.Fatalf("update payload must not carry updatedAt")
	}
}

func TestUpdatePreferencesRejectsMismatchedObjectID(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeDirectory{found: true}, &fakeStore{})
	desired := desiredRecord("1111111", domain.SubscriptionState{
		"Dev Newsletter": true, "Design Newsletter": false, "Data Science Newsletter": false,
	})
	err := h.service.UpdatePreferences(context.Background(), "2222222", desired)
	if !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	if h.identity.calls != 0 || h.directory.getCalls != 0 || h.store.getCalls != 0 || len(h.publisher.events) != 0 {
		t.Fatalf("expected no collaborator calls before the mismatch check")
	}
}

func TestUpdatePreferencesRejectsPartialSubscriptionMap(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeDirectory{found: true}, &fakeStore{})
	desired := desiredRecord("23124329", domain.SubscriptionState{"Dev Newsletter": true})
	err := h.service.UpdatePreferences(context.Background(), "23124329", desired)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if h.identity.calls != 0 {
		t.Fatalf("expected validation to fail before any side effect")
	}
}

func TestUpdatePreferencesAppliesDiffInCatalogOrder(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeDirectory{
		found: true,
		tags:  []domain.Tag{{Name: "Dev Newsletter", Status: domain.TagActive}},
	}, &fakeStore{found: true, rec: domain.PreferenceRecord{ID: "23124329"}})
	desired := desiredRecord("23124329", domain.SubscriptionState{
		"Dev Newsletter": false, "Design Newsletter": true, "Data Science Newsletter": true,
	})
	if err := h.service.UpdatePreferences(context.Background(), "23124329", desired); err != nil {
		t.Fatalf("update preferences: %v", err)
	}

	if h.directory.metaCalls != 1 {
		t.Fatalf("expected unconditional metadata sync, got %d calls", h.directory.metaCalls)
	}
	if h.directory.mutateCalls != 1 {
		t.Fatalf("expected one mutation batch, got %d", h.directory.mutateCalls)
	}
	want := []domain.TagMutation{
		{Name: "Dev Newsletter", Status: domain.TagInactive},
		{Name: "Design Newsletter", Status: domain.TagActive},
		{Name: "Data Science Newsletter", Status: domain.TagActive},
	}
	if len(h.directory.mutations) != len(want) {
		t.Fatalf("expected %d mutations, got %d", len(want), len(h.directory.mutations))
	}
	for i := range want {
		if h.directory.mutations[i] != want[i] {
			t.Fatalf("mutation %d: got %+v, want %+v", i, h.directory.mutations[i], want[i])
		}
	}
}

func TestUpdatePreferencesRepeatedWriteSkipsTagMutations(t *testing.T) {
	t.Parallel()

	subs := domain.SubscriptionState{
		"Dev Newsletter": true, "Design Newsletter": false, "Data Science Newsletter": false,
	}
	desired := desiredRecord("8547899", subs)
	h := newHarness(&fakeDirectory{
		found: true,
		tags:  []domain.Tag{{Name: "Dev Newsletter", Status: domain.TagActive}},
	}, &fakeStore{found: true, rec: domain.PreferenceRecord{ID: "8547899", Email: desired.Email}})

	if err := h.service.UpdatePreferences(context.Background(), "8547899", desired); err != nil {
		t.Fatalf("update preferences: %v", err)
	}

	if h.directory.mutateCalls != 0 {
		t.Fatalf("expected no tag mutation call, got %d", h.directory.mutateCalls)
	}
	if h.store.patchCalls != 1 || h.store.insertCalls != 0 {
		t.Fatalf("expected one partial snapshot update, got %d patches and %d inserts", h.store.patchCalls, h.store.insertCalls)
	}
	if h.store.lastPatch.Email != nil {
		t.Fatalf("expected patch to skip unchanged email subsection")
	}
	if h.store.lastPatch.UpdatedAt.IsZero() {
		t.Fatalf("expected patch to stamp updatedAt")
	}
	if len(h.publisher.events) != 1 || h.publisher.events[0].eventType != "preference.updated" {
		t.Fatalf("expected exactly one update event, got %v", h.publisher.events)
	}
}

func TestUpdatePreferencesPatchesChangedEmailSubsection(t *testing.T) {
	t.Parallel()

	stored := desiredRecord("23124329", domain.SubscriptionState{
		"Dev Newsletter": false, "Design Newsletter": false, "Data Science Newsletter": false,
	})
	h := newHarness(&fakeDirectory{found: true}, &fakeStore{
		found: true,
		rec:   domain.PreferenceRecord{ID: "23124329", Email: stored.Email},
	})
	desired := desiredRecord("23124329", domain.SubscriptionState{
		"Dev Newsletter": true, "Design Newsletter": false, "Data Science Newsletter": false,
	})
	if err := h.service.UpdatePreferences(context.Background(), "23124329", desired); err != nil {
		t.Fatalf("update preferences: %v", err)
	}
	if h.store.lastPatch.Email == nil {
		t.Fatalf("expected patch to carry the changed email subsection")
	}
	if !h.store.lastPatch.Email.Subscriptions["Dev Newsletter"] {
		t.Fatalf("expected patched subscriptions to match the desired state")
	}
}

func TestUpdatePreferencesSurfacesPublishFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeDirectory{found: true}, &fakeStore{found: true})
	h.publisher.err = errors.New("broker unavailable")
	desired := desiredRecord("23124329", domain.SubscriptionState{
		"Dev Newsletter": false, "Design Newsletter": false, "Data Science Newsletter": false,
	})
	err := h.service.UpdatePreferences(context.Background(), "23124329", desired)
	if err == nil {
		t.Fatalf("expected publish failure to surface")
	}
	if h.store.patchCalls != 1 {
		t.Fatalf("expected snapshot write to have been applied before the publish attempt")
	}
}
