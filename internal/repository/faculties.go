package repository

import (
	"context"

	"volunteerhub/internal/model"
)

func (s *Store) ListFaculties(ctx context.Context) ([]model.Faculty, error) {
	var faculties []model.Faculty
	err := s.selectAll(ctx, &faculties, `SELECT id, name, created_at FROM faculties ORDER BY name`)
	return faculties, err
}

func (s *Store) GetFaculty(ctx context.Context, id int64) (model.Faculty, error) {
	var faculty model.Faculty
	err := s.get(ctx, &faculty, `SELECT id, name, created_at FROM faculties WHERE id = $1`, id)
	return faculty, err
}

const majorSelect = `
	SELECT m.id, m.faculty_id, m.name, f.name AS faculty_name, m.created_at
	FROM majors m
	JOIN faculties f ON f.id = m.faculty_id`

// ListMajors lists every major, or only the faculty's when facultyID > 0.
func (s *Store) ListMajors(ctx context.Context, facultyID int64) ([]model.Major, error) {
	var b builder
	if facultyID > 0 {
		b.where("m.faculty_id = " + b.arg(facultyID))
	}
	var majors []model.Major
	err := s.selectAll(ctx, &majors, majorSelect+b.whereClause()+` ORDER BY f.name, m.name`, b.args...)
	return majors, err
}

func (s *Store) GetMajor(ctx context.Context, id int64) (model.Major, error) {
	var major model.Major
	err := s.get(ctx, &major, majorSelect+` WHERE m.id = $1`, id)
	return major, err
}

func (s *Store) UpsertFaculty(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.get(ctx, &id, `
		INSERT INTO faculties (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name)
	return id, err
}

func (s *Store) UpsertMajor(ctx context.Context, facultyID int64, name string) (int64, error) {
	var id int64
	err := s.get(ctx, &id, `
		INSERT INTO majors (faculty_id, name) VALUES ($1, $2)
		ON CONFLICT (faculty_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, facultyID, name)
	return id, err
}
