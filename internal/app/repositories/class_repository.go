package repositories

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/yigit/eduadmin/internal/app/models"
)

var classColumns = []string{"id", "tenant_id", "name", "organizational_unit_id", "branch_id"}

var sectionColumns = []string{
	"id", "tenant_id", "class_id", "name", "capacity", "teacher_id", "assistant_teacher_id",
	"custom_teacher", "custom_assistant_teacher", "building", "floor", "wing", "position",
}

func scanClass(row rowScanner) (models.AcademicClass, error) {
	var c models.AcademicClass
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.OrganizationalUnitID, &c.BranchID)
	c.Sections = []models.Section{}
	return c, err
}

func scanSection(row rowScanner) (models.Section, error) {
	var s models.Section
	err := row.Scan(&s.ID, &s.TenantID, &s.ClassID, &s.Name, &s.Capacity, &s.TeacherID, &s.AssistantTeacherID,
		&s.CustomTeacher, &s.CustomAssistantTeacher, &s.Building, &s.Floor, &s.Wing, &s.Position)
	return s, err
}

// ListClasses retrieves the tenant's classes with their sections
func (q *pgQueries) ListClasses(ctx context.Context, tenantID string) ([]models.AcademicClass, error) {
	classes, err := queryAll(ctx, q,
		q.sb.Select(classColumns...).From("academic_classes").
			Where(squirrel.Eq{"tenant_id": tenantID}).
			OrderBy("name"),
		"list classes", scanClass)
	if err != nil {
		return nil, err
	}

	sections, err := queryAll(ctx, q,
		q.sb.Select(sectionColumns...).From("sections").
			Where(squirrel.Eq{"tenant_id": tenantID}).
			OrderBy("class_id", "position", "name"),
		"list sections", scanSection)
	if err != nil {
		return nil, err
	}

	byClass := make(map[string]int, len(classes))
	for i := range classes {
		byClass[classes[i].ID] = i
	}
	for _, s := range sections {
		if i, ok := byClass[s.ClassID]; ok {
			classes[i].Sections = append(classes[i].Sections, s)
		}
	}
	return classes, nil
}

// CreateClass creates the class row and any sections it carries
func (q *pgQueries) CreateClass(ctx context.Context, class *models.AcademicClass) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	err := q.exec(ctx, q.sb.Insert("academic_classes").
		Columns(classColumns...).
		Values(class.ID, class.TenantID, class.Name, class.OrganizationalUnitID, class.BranchID),
		"create class")
	if err != nil {
		return err
	}

	for i := range class.Sections {
		section := &class.Sections[i]
		section.ClassID = class.ID
		section.TenantID = class.TenantID
		if err := q.CreateSection(ctx, section); err != nil {
			return err
		}
	}
	return nil
}

// UpdateClass updates the class row in place
func (q *pgQueries) UpdateClass(ctx context.Context, class *models.AcademicClass) error {
	return q.exec(ctx, q.sb.Update("academic_classes").
		SetMap(map[string]interface{}{
			"name":                   class.Name,
			"organizational_unit_id": class.OrganizationalUnitID,
			"branch_id":              class.BranchID,
		}).
		Where(squirrel.Eq{"id": class.ID, "tenant_id": class.TenantID}),
		"update class")
}

// DeleteClass deletes a class; sections and subjects go with it
func (q *pgQueries) DeleteClass(ctx context.Context, tenantID, id string) error {
	return q.exec(ctx, q.sb.Delete("academic_classes").Where(squirrel.Eq{"id": id, "tenant_id": tenantID}),
		"delete class")
}

// CreateSection creates a section in an existing class
func (q *pgQueries) CreateSection(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	return q.exec(ctx, q.sb.Insert("sections").
		Columns(sectionColumns...).
		Values(section.ID, section.TenantID, section.ClassID, section.Name, section.Capacity,
			section.TeacherID, section.AssistantTeacherID, section.CustomTeacher, section.CustomAssistantTeacher,
			section.Building, section.Floor, section.Wing, section.Position),
		"create section")
}

// UpdateSection updates a section in place
func (q *pgQueries) UpdateSection(ctx context.Context, section *models.Section) error {
	return q.exec(ctx, q.sb.Update("sections").
		SetMap(map[string]interface{}{
			"name":                     section.Name,
			"capacity":                 section.Capacity,
			"teacher_id":               section.TeacherID,
			"assistant_teacher_id":     section.AssistantTeacherID,
			"custom_teacher":           section.CustomTeacher,
			"custom_assistant_teacher": section.CustomAssistantTeacher,
			"building":                 section.Building,
			"floor":                    section.Floor,
			"wing":                     section.Wing,
			"position":                 section.Position,
		}).
		Where(squirrel.Eq{"id": section.ID, "tenant_id": section.TenantID}),
		"update section")
}

// DeleteSection deletes a section
func (q *pgQueries) DeleteSection(ctx context.Context, tenantID, id string) error {
	return q.exec(ctx, q.sb.Delete("sections").Where(squirrel.Eq{"id": id, "tenant_id": tenantID}), "delete section")
}
