package repositories

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/yigit/eduadmin/internal/app/models"
)

var branchColumns = []string{"id", "tenant_id", "school_id", "name", "address", "phone", "email", "is_head_office"}

func scanBranch(row rowScanner) (models.Branch, error) {
	var b models.Branch
	err := row.Scan(&b.ID, &b.TenantID, &b.SchoolID, &b.Name, &b.Address, &b.Phone, &b.Email, &b.IsHeadOffice)
	return b, err
}

// ListBranches retrieves all branches of a tenant, head office first
func (q *pgQueries) ListBranches(ctx context.Context, tenantID string) ([]models.Branch, error) {
	return queryAll(ctx, q,
		q.sb.Select(branchColumns...).From("branches").
			Where(squirrel.Eq{"tenant_id": tenantID}).
			OrderBy("is_head_office DESC", "name"),
		"list branches", scanBranch)
}

// CreateBranch creates a new branch
func (q *pgQueries) CreateBranch(ctx context.Context, branch *models.Branch) error {
	if branch.ID == "" {
		branch.ID = uuid.NewString()
	}
	return q.exec(ctx, q.sb.Insert("branches").
		Columns(branchColumns...).
		Values(branch.ID, branch.TenantID, branch.SchoolID, branch.Name, branch.Address,
			branch.Phone, branch.Email, branch.IsHeadOffice),
		"create branch")
}

// UpdateBranch updates a branch in place
func (q *pgQueries) UpdateBranch(ctx context.Context, branch *models.Branch) error {
	return q.exec(ctx, q.sb.Update("branches").
		SetMap(map[string]interface{}{
			"name":           branch.Name,
			"address":        branch.Address,
			"phone":          branch.Phone,
			"email":          branch.Email,
			"is_head_office": branch.IsHeadOffice,
		}).
		Where(squirrel.Eq{"id": branch.ID, "tenant_id": branch.TenantID}),
		"update branch")
}

// DeleteBranch deletes a branch
func (q *pgQueries) DeleteBranch(ctx context.Context, tenantID, id string) error {
	return q.exec(ctx, q.sb.Delete("branches").Where(squirrel.Eq{"id": id, "tenant_id": tenantID}), "delete branch")
}

var unitColumns = []string{"id", "tenant_id", "school_id", "name", "type", "is_academic", "parent_unit_id", "branch_id"}

func scanUnit(row rowScanner) (models.OrganizationalUnit, error) {
	var u models.OrganizationalUnit
	err := row.Scan(&u.ID, &u.TenantID, &u.SchoolID, &u.Name, &u.Type, &u.IsAcademic, &u.ParentUnitID, &u.BranchID)
	return u, err
}

// ListUnits retrieves the tenant's organizational units ordered by name
func (q *pgQueries) ListUnits(ctx context.Context, tenantID string) ([]models.OrganizationalUnit, error) {
	return queryAll(ctx, q,
		q.sb.Select(unitColumns...).From("organizational_units").
			Where(squirrel.Eq{"tenant_id": tenantID}).
			OrderBy("name"),
		"list organizational units", scanUnit)
}

// CreateUnit creates a new organizational unit
func (q *pgQueries) CreateUnit(ctx context.Context, unit *models.OrganizationalUnit) error {
	if unit.ID == "" {
		unit.ID = uuid.NewString()
	}
	return q.exec(ctx, q.sb.Insert("organizational_units").
		Columns(unitColumns...).
		Values(unit.ID, unit.TenantID, unit.SchoolID, unit.Name, unit.Type, unit.IsAcademic,
			unit.ParentUnitID, unit.BranchID),
		"create organizational unit")
}

// UpdateUnit updates an organizational unit in place
func (q *pgQueries) UpdateUnit(ctx context.Context, unit *models.OrganizationalUnit) error {
	return q.exec(ctx, q.sb.Update("organizational_units").
		SetMap(map[string]interface{}{
			"name":           unit.Name,
			"type":           unit.Type,
			"is_academic":    unit.IsAcademic,
			"parent_unit_id": unit.ParentUnitID,
			"branch_id":      unit.BranchID,
		}).
		Where(squirrel.Eq{"id": unit.ID, "tenant_id": unit.TenantID}),
		"update organizational unit")
}

// DeleteUnit deletes an organizational unit; children keep living with no parent
func (q *pgQueries) DeleteUnit(ctx context.Context, tenantID, id string) error {
	return q.exec(ctx, q.sb.Delete("organizational_units").Where(squirrel.Eq{"id": id, "tenant_id": tenantID}),
		"delete organizational unit")
}
