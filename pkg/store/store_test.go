package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/strongarm/pkg/cellio"
	"github.com/matzehuels/strongarm/pkg/comparator"
	apperrors "github.com/matzehuels/strongarm/pkg/errors"
	"github.com/matzehuels/strongarm/pkg/geom"
)

func testDoc(name string) *cellio.Document {
	p := comparator.DefaultParams()
	p.Name = name
	return &cellio.Document{
		Version: cellio.Version,
		Name:    name,
		Params:  p,
		Pitch:   680,
		Bounds:  geom.Rect{Left: 0, Bottom: -27880, Right: 4080, Top: 1360},
	}
}

func TestNewRecord(t *testing.T) {
	rec := NewRecord(testDoc("a"))
	if _, err := uuid.Parse(rec.ID); err != nil {
		t.Errorf("ID %q is not a uuid", rec.ID)
	}
	if rec.Name != "a" || rec.ParamsHash == "" || rec.CreatedAt.IsZero() {
		t.Errorf("record = %+v", rec)
	}
	if rec.Stats.Width != 4080 {
		t.Errorf("Stats.Width = %d", rec.Stats.Width)
	}
	if NewRecord(testDoc("a")).ID == rec.ID {
		t.Error("IDs should be unique")
	}
	if rec.Summary().Document != nil || rec.Document == nil {
		t.Error("Summary should drop only the copy's document")
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	rec := NewRecord(testDoc("a"))
	if err := s.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "a" || got.Document == nil {
		t.Errorf("Get() = %+v", got)
	}

	if err := s.Delete(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}
	_, err = s.Get(ctx, rec.ID)
	if !errors.Is(err, ErrNotFound) || !apperrors.Is(err, apperrors.ErrCodeNotFound) {
		t.Errorf("Get after delete err = %v", err)
	}
	if err := s.Delete(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete err = %v", err)
	}
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"old", "mid", "new"} {
		rec := NewRecord(testDoc(name))
		rec.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if err := s.Save(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Name != "new" || all[2].Name != "old" {
		t.Errorf("List() order wrong: %v, %v, %v", all[0].Name, all[1].Name, all[2].Name)
	}
	for _, r := range all {
		if r.Document != nil {
			t.Error("List should return summaries")
		}
	}

	two, _ := s.List(ctx, 2)
	if len(two) != 2 {
		t.Errorf("List(2) = %d records", len(two))
	}
}

func TestStoreValidation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	tests := []struct {
		name string
		run  func() error
		code apperrors.Code
	}{
		{"get bad id", func() error { _, err := s.Get(ctx, "../etc"); return err }, apperrors.ErrCodeInvalidInput},
		{"delete bad id", func() error { return s.Delete(ctx, "x") }, apperrors.ErrCodeInvalidInput},
		{"save nil", func() error { return s.Save(ctx, nil) }, apperrors.ErrCodeInvalidInput},
		{"save no document", func() error { return s.Save(ctx, &Record{ID: uuid.NewString()}) }, apperrors.ErrCodeInvalidInput},
		{"get missing", func() error { _, err := s.Get(ctx, uuid.NewString()); return err }, apperrors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperrors.GetCode(tt.run()); got != tt.code {
				t.Errorf("code = %s, want %s", got, tt.code)
			}
		})
	}
}

func TestMongoRecordConversion(t *testing.T) {
	rec := NewRecord(testDoc("m"))
	m, err := toMongo(rec)
	if err != nil {
		t.Fatal(err)
	}
	if m.ID != rec.ID || len(m.Document) == 0 {
		t.Errorf("toMongo() = %+v", m)
	}
	back, err := fromMongo(m)
	if err != nil {
		t.Fatal(err)
	}
	if back.Document == nil || back.Document.Name != "m" || back.Document.Bounds != rec.Document.Bounds {
		t.Errorf("fromMongo() document = %+v", back.Document)
	}

	m.Document = nil
	summary, err := fromMongo(m)
	if err != nil || summary.Document != nil {
		t.Errorf("summary conversion = %+v, %v", summary, err)
	}
}
