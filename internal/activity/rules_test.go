package activity

import (
	"testing"
	"time"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/model"
)

func TestCheckTransition(t *testing.T) {
	allowed := [][2]model.ActivityStatus{
		{model.ActivityPending, model.ActivityApproved},
		{model.ActivityPending, model.ActivityRejected},
		{model.ActivityApproved, model.ActivityCompleted},
		{model.ActivityApproved, model.ActivityCancelled},
		{model.ActivityCompleted, model.ActivityCompleted},
	}
	for _, pair := range allowed {
		if err := CheckTransition(pair[0], pair[1]); err != nil {
			t.Fatalf("expected %s -> %s allowed: %v", pair[0], pair[1], err)
		}
	}

	rejected := [][2]model.ActivityStatus{
		{model.ActivityPending, model.ActivityCompleted},
		{model.ActivityPending, model.ActivityCancelled},
		{model.ActivityApproved, model.ActivityPending},
		{model.ActivityApproved, model.ActivityRejected},
		{model.ActivityRejected, model.ActivityApproved},
		{model.ActivityCancelled, model.ActivityApproved},
		{model.ActivityCompleted, model.ActivityCancelled},
	}
	for _, pair := range rejected {
		if err := CheckTransition(pair[0], pair[1]); apperr.KindOf(err) != apperr.Conflict {
			t.Fatalf("expected %s -> %s rejected, got %v", pair[0], pair[1], err)
		}
	}

	if err := CheckTransition(model.ActivityPending, "DONE"); apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("expected unknown status to be a validation error, got %v", err)
	}
}

func TestCheckDecision(t *testing.T) {
	if err := CheckDecision(model.ApplicationPending, model.ApplicationApproved); err != nil {
		t.Fatalf("expected approve from pending: %v", err)
	}
	if err := CheckDecision(model.ApplicationAttended, model.ApplicationAttended); err != nil {
		t.Fatalf("expected attended re-entry: %v", err)
	}
	if err := CheckDecision(model.ApplicationRejected, model.ApplicationPending); err == nil {
		t.Fatalf("expected rejected -> pending to fail")
	}
	if err := CheckDecision(model.ApplicationApproved, model.ApplicationApproved); err == nil {
		t.Fatalf("expected approving twice to fail")
	}
	if err := CheckDecision(model.ApplicationPending, model.ApplicationAttended); err == nil {
		t.Fatalf("expected pending -> attended to fail")
	}
}

func TestPermissions(t *testing.T) {
	activity := model.Activity{CreatedBy: "owner", Status: model.ActivityPending}
	if !CanManage(model.Actor{ID: "owner", Role: model.RoleStaff}, activity) {
		t.Fatalf("expected owner to manage")
	}
	if !CanManage(model.Actor{ID: "other", Role: model.RoleAdmin}, activity) {
		t.Fatalf("expected admin to manage")
	}
	if CanManage(model.Actor{ID: "other", Role: model.RoleStaff}, activity) {
		t.Fatalf("expected other staff to be refused")
	}

	if CanView(nil, activity) {
		t.Fatalf("expected anonymous viewer refused on pending activity")
	}
	if CanView(&model.Actor{ID: "s", Role: model.RoleStudent}, activity) {
		t.Fatalf("expected student refused on pending activity")
	}
	if !CanView(&model.Actor{ID: "x", Role: model.RoleStaff}, activity) {
		t.Fatalf("expected staff to view pending activity")
	}
	activity.Status = model.ActivityApproved
	if !CanView(nil, activity) {
		t.Fatalf("expected approved activity public")
	}
}

func TestHasSeat(t *testing.T) {
	if !HasSeat(1, 0) {
		t.Fatalf("expected a free seat")
	}
	if HasSeat(1, 1) {
		t.Fatalf("expected full activity")
	}
	if HasSeat(0, 0) {
		t.Fatalf("expected zero capacity to be full")
	}
}

func TestDraftValidate(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	d := Draft{Title: " Beach cleanup ", Description: "d", Category: "env", StartTime: start, EndTime: start.Add(3 * time.Hour), MaxParticipants: 5}
	if err := d.Validate(); err != nil {
		t.Fatalf("expected valid draft: %v", err)
	}
	if d.Title != "Beach cleanup" {
		t.Fatalf("expected trimmed title, got %q", d.Title)
	}

	bad := d
	bad.EndTime = start
	if err := bad.Validate(); apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("expected start == end rejected")
	}
	bad = d
	bad.MaxParticipants = 0
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected zero capacity rejected at creation")
	}
	bad = d
	bad.Category = " "
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected missing category rejected")
	}
}

func TestPatchValidateMergesWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	current := model.Activity{StartTime: start, EndTime: start.Add(2 * time.Hour)}

	later := start.Add(3 * time.Hour)
	if err := (Patch{StartTime: &later}).Validate(current); err == nil {
		t.Fatalf("expected start after existing end rejected")
	}
	end := start.Add(4 * time.Hour)
	if err := (Patch{StartTime: &later, EndTime: &end}).Validate(current); err != nil {
		t.Fatalf("expected moved window accepted: %v", err)
	}
	empty := ""
	if err := (Patch{Title: &empty}).Validate(current); err == nil {
		t.Fatalf("expected empty title rejected")
	}
	negative := -1
	if err := (Patch{MaxParticipants: &negative}).Validate(current); err == nil {
		t.Fatalf("expected negative capacity rejected")
	}
}

func TestQueryNormalize(t *testing.T) {
	q := Query{Page: 0, Limit: 500}
	q.normalize()
	if q.Page != 1 || q.Limit != maxLimit {
		t.Fatalf("unexpected normalized query %+v", q)
	}
	q = Query{Page: 3, Limit: 10}
	q.normalize()
	if q.offset() != 20 {
		t.Fatalf("expected offset 20, got %d", q.offset())
	}
}

func TestTotalPages(t *testing.T) {
	if got := (Page{Total: 21, Limit: 10}).TotalPages(); got != 3 {
		t.Fatalf("expected 3 pages, got %d", got)
	}
	if got := (Page{Total: 0, Limit: 10}).TotalPages(); got != 0 {
		t.Fatalf("expected 0 pages, got %d", got)
	}
}

func TestIsActive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := model.Activity{Status: model.ActivityApproved, EndTime: now.Add(time.Hour)}
	if !IsActive(a, now) {
		t.Fatalf("expected active")
	}
	a.EndTime = now.Add(-time.Hour)
	if IsActive(a, now) {
		t.Fatalf("expected ended activity inactive")
	}
}
