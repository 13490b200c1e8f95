package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/dbtest"
	"volunteerhub/internal/model"
)

func newTestManager(t *testing.T) *Manager {
	return NewManager(dbtest.Open(t), nil)
}

func actorOf(account model.Account) model.Actor {
	return model.Actor{ID: account.ID, Role: account.Role}
}

func futureDraft(capacity int) Draft {
	start := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	return Draft{
		Title:           "Park cleanup",
		Description:     "Collect litter in the park",
		Category:        "environment",
		StartTime:       start,
		EndTime:         start.Add(3 * time.Hour),
		MaxParticipants: capacity,
	}
}

func TestLifecycleScenario(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	staff := actorOf(dbtest.Account(t, m.store, model.RoleStaff))
	admin := actorOf(dbtest.Account(t, m.store, model.RoleAdmin))
	studentA := actorOf(dbtest.Account(t, m.store, model.RoleStudent))
	studentB := actorOf(dbtest.Account(t, m.store, model.RoleStudent))

	created, err := m.Create(ctx, staff, futureDraft(1))
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if created.Status != model.ActivityPending || created.CurrentParticipants != 0 {
		t.Fatalf("expected pending activity with no participants, got %+v", created)
	}

	if _, err := m.Approve(ctx, created.ID, staff, true); apperr.KindOf(err) != apperr.Forbidden {
		t.Fatalf("expected staff approval to be forbidden, got %v", err)
	}
	approved, err := m.Approve(ctx, created.ID, admin, true)
	if err != nil {
		t.Fatalf("approve error: %v", err)
	}
	if approved.Status != model.ActivityApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}
	if _, err := m.Approve(ctx, created.ID, admin, true); apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("expected second approval to conflict, got %v", err)
	}

	appA, err := m.Apply(ctx, created.ID, studentA)
	if err != nil {
		t.Fatalf("apply error: %v", err)
	}
	if appA.Status != model.ApplicationPending {
		t.Fatalf("expected pending application, got %s", appA.Status)
	}
	if _, err := m.ApproveApplicant(ctx, created.ID, appA.ID, staff); err != nil {
		t.Fatalf("approve applicant error: %v", err)
	}
	view, err := m.Get(ctx, created.ID, &studentA)
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if view.CurrentParticipants != 1 {
		t.Fatalf("expected 1 participant, got %d", view.CurrentParticipants)
	}
	if view.ApplicationStatus == nil || *view.ApplicationStatus != model.ApplicationApproved {
		t.Fatalf("expected viewer application status APPROVED")
	}

	if _, err := m.Apply(ctx, created.ID, studentB); !errors.Is(err, errActivityFull) {
		t.Fatalf("expected full activity, got %v", err)
	}

	completed, recorded, err := m.UpdateStatus(ctx, created.ID, staff, model.ActivityCompleted)
	if err != nil {
		t.Fatalf("complete error: %v", err)
	}
	if completed.Status != model.ActivityCompleted || recorded != 1 {
		t.Fatalf("expected completion with 1 record, got %s / %d", completed.Status, recorded)
	}
	records, err := m.Participation(ctx, created.ID, staff)
	if err != nil {
		t.Fatalf("participation error: %v", err)
	}
	if len(records) != 1 || records[0].AccountID != studentA.ID || records[0].Hours != 3 || records[0].Points != 3 {
		t.Fatalf("unexpected participation records %+v", records)
	}

	if _, _, err := m.UpdateStatus(ctx, created.ID, staff, model.ActivityCompleted); err != nil {
		t.Fatalf("expected completion re-entry: %v", err)
	}
	records, err = m.Participation(ctx, created.ID, staff)
	if err != nil {
		t.Fatalf("participation error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected re-completion not to duplicate rows, got %d", len(records))
	}
	if _, _, err := m.UpdateStatus(ctx, created.ID, staff, model.ActivityCancelled); apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("expected completed activity to be terminal, got %v", err)
	}

	summary, err := m.Summary(ctx, studentA)
	if err != nil {
		t.Fatalf("summary error: %v", err)
	}
	if summary.TotalHours != 3 || summary.RegisteredCount != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestAdminCreatesApprovedActivity(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	admin := actorOf(dbtest.Account(t, m.store, model.RoleAdmin))
	student := actorOf(dbtest.Account(t, m.store, model.RoleStudent))

	created, err := m.Create(ctx, admin, futureDraft(5))
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if created.Status != model.ActivityApproved {
		t.Fatalf("expected admin activity approved on creation, got %s", created.Status)
	}
	if _, err := m.Create(ctx, student, futureDraft(5)); apperr.KindOf(err) != apperr.Forbidden {
		t.Fatalf("expected student create forbidden, got %v", err)
	}
}

func TestApplyTwiceThenCancelAndReapply(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	admin := actorOf(dbtest.Account(t, m.store, model.RoleAdmin))
	student := actorOf(dbtest.Account(t, m.store, model.RoleStudent))

	created, err := m.Create(ctx, admin, futureDraft(5))
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if _, err := m.Apply(ctx, created.ID, student); err != nil {
		t.Fatalf("apply error: %v", err)
	}
	if _, err := m.Apply(ctx, created.ID, student); !errors.Is(err, errAlreadyApplied) {
		t.Fatalf("expected second apply rejected, got %v", err)
	}
	if err := m.Cancel(ctx, created.ID, student); err != nil {
		t.Fatalf("cancel error: %v", err)
	}
	if _, err := m.Apply(ctx, created.ID, student); err != nil {
		t.Fatalf("expected re-apply after cancel: %v", err)
	}

	registered, _, err := m.Toggle(ctx, created.ID, student)
	if err != nil || registered {
		t.Fatalf("expected toggle to cancel, got registered=%v err=%v", registered, err)
	}
	registered, app, err := m.Toggle(ctx, created.ID, student)
	if err != nil || !registered || app == nil {
		t.Fatalf("expected toggle to apply, got registered=%v err=%v", registered, err)
	}
}

func TestConcurrentApprovalsRespectCapacity(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	admin := actorOf(dbtest.Account(t, m.store, model.RoleAdmin))

	created, err := m.Create(ctx, admin, futureDraft(2))
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	var ids []string
	for i := 0; i < 2; i++ {
		student := actorOf(dbtest.Account(t, m.store, model.RoleStudent))
		app, err := m.Apply(ctx, created.ID, student)
		if err != nil {
			t.Fatalf("apply error: %v", err)
		}
		ids = append(ids, app.ID)
	}
	// Two seats are still free, so a third applicant may still apply.
	third := actorOf(dbtest.Account(t, m.store, model.RoleStudent))
	app, err := m.Apply(ctx, created.ID, third)
	if err != nil {
		t.Fatalf("apply error: %v", err)
	}
	ids = append(ids, app.ID)

	errs := make(chan error, len(ids))
	for _, id := range ids {
		go func(id string) {
			_, err := m.ApproveApplicant(ctx, created.ID, id, admin)
			errs <- err
		}(id)
	}
	failures := 0
	for range ids {
		if err := <-errs; err != nil {
			if !errors.Is(err, errActivityFull) {
				t.Fatalf("unexpected approval error: %v", err)
			}
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("expected exactly one approval refused, got %d", failures)
	}
	seats, err := m.store.CountSeats(ctx, created.ID)
	if err != nil {
		t.Fatalf("count error: %v", err)
	}
	if seats != 2 {
		t.Fatalf("expected 2 seats taken, got %d", seats)
	}
}

func TestAttendAndScore(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	staff := actorOf(dbtest.Account(t, m.store, model.RoleStaff))
	admin := actorOf(dbtest.Account(t, m.store, model.RoleAdmin))
	student := actorOf(dbtest.Account(t, m.store, model.RoleStudent))
	other := actorOf(dbtest.Account(t, m.store, model.RoleStaff))

	created, err := m.Create(ctx, staff, futureDraft(3))
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if _, err := m.Approve(ctx, created.ID, admin, true); err != nil {
		t.Fatalf("approve error: %v", err)
	}
	app, err := m.Apply(ctx, created.ID, student)
	if err != nil {
		t.Fatalf("apply error: %v", err)
	}
	if _, err := m.MarkAttended(ctx, created.ID, app.ID, staff); apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("expected pending applicant cannot attend, got %v", err)
	}
	if _, err := m.ApproveApplicant(ctx, created.ID, app.ID, other); apperr.KindOf(err) != apperr.Forbidden {
		t.Fatalf("expected non-owner staff forbidden, got %v", err)
	}
	if _, err := m.ApproveApplicant(ctx, created.ID, app.ID, staff); err != nil {
		t.Fatalf("approve applicant error: %v", err)
	}
	if _, err := m.ScoreOne(ctx, created.ID, app.ID, staff, Score{Hours: 2, Points: 4}); apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("expected scoring before attendance to fail, got %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := m.MarkAttended(ctx, created.ID, app.ID, staff); err != nil {
			t.Fatalf("mark attended error: %v", err)
		}
	}
	record, err := m.ScoreOne(ctx, created.ID, app.ID, staff, Score{Hours: 2, Points: 4})
	if err != nil {
		t.Fatalf("score error: %v", err)
	}
	if record.Hours != 2 || record.Points != 4 {
		t.Fatalf("unexpected record %+v", record)
	}
	n, err := m.ScoreAll(ctx, created.ID, staff, Score{Hours: 5, Points: 5})
	if err != nil || n != 1 {
		t.Fatalf("expected bulk score of 1 record, got %d err=%v", n, err)
	}
	totals, err := m.store.ParticipationTotals(ctx, student.ID)
	if err != nil {
		t.Fatalf("totals error: %v", err)
	}
	if totals.Hours != 5 || totals.Points != 5 {
		t.Fatalf("expected scores replaced, got %+v", totals)
	}
	if _, err := m.ScoreAll(ctx, created.ID, staff, Score{Hours: -1}); apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("expected negative hours rejected, got %v", err)
	}
}

func TestEditAndDelete(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	staff := actorOf(dbtest.Account(t, m.store, model.RoleStaff))
	admin := actorOf(dbtest.Account(t, m.store, model.RoleAdmin))
	student := actorOf(dbtest.Account(t, m.store, model.RoleStudent))

	created, err := m.Create(ctx, staff, futureDraft(3))
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	title := "Renamed"
	edited, err := m.Edit(ctx, created.ID, staff, Patch{Title: &title})
	if err != nil {
		t.Fatalf("edit error: %v", err)
	}
	if edited.Title != "Renamed" || edited.Description != created.Description {
		t.Fatalf("expected partial update, got %+v", edited.Activity)
	}
	badEnd := created.StartTime.Add(-time.Hour)
	if _, err := m.Edit(ctx, created.ID, staff, Patch{EndTime: &badEnd}); apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("expected end before start rejected, got %v", err)
	}
	status := model.ActivityApproved
	if _, err := m.Edit(ctx, created.ID, staff, Patch{Status: &status}); apperr.KindOf(err) != apperr.Forbidden {
		t.Fatalf("expected staff status edit forbidden, got %v", err)
	}
	edited, err = m.Edit(ctx, created.ID, admin, Patch{Status: &status})
	if err != nil || edited.Status != model.ActivityApproved {
		t.Fatalf("expected admin status edit, got %v", err)
	}

	if _, err := m.Apply(ctx, created.ID, student); err != nil {
		t.Fatalf("apply error: %v", err)
	}
	if err := m.Delete(ctx, created.ID, staff); apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("expected owner delete refused with applicants, got %v", err)
	}
	if err := m.Delete(ctx, created.ID, admin); err != nil {
		t.Fatalf("expected admin delete: %v", err)
	}
	if _, err := m.Get(ctx, created.ID, &admin); apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("expected deleted activity missing, got %v", err)
	}
}

func TestListHidesUnapprovedFromStudents(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	staff := actorOf(dbtest.Account(t, m.store, model.RoleStaff))
	student := actorOf(dbtest.Account(t, m.store, model.RoleStudent))

	draft := futureDraft(3)
	draft.Category = "category-" + staff.ID
	if _, err := m.Create(ctx, staff, draft); err != nil {
		t.Fatalf("create error: %v", err)
	}

	page, err := m.List(ctx, &student, Query{Category: draft.Category, Status: model.ActivityPending})
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("expected student to see no pending activities, got %d", page.Total)
	}
	page, err = m.List(ctx, &staff, Query{Category: draft.Category})
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 {
		t.Fatalf("expected staff to see the pending activity, got %d", page.Total)
	}
	mine, err := m.Created(ctx, staff, Query{})
	if err != nil || mine.Total != 1 {
		t.Fatalf("expected one created activity, got %d err=%v", mine.Total, err)
	}
	summary, err := m.StaffSummary(ctx, staff)
	if err != nil {
		t.Fatalf("staff summary error: %v", err)
	}
	if summary.TotalActivities != 1 || summary.PendingActivities != 1 {
		t.Fatalf("unexpected staff summary %+v", summary)
	}
}
