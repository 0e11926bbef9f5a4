package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/app/repositories"
)

func TestFindParentByContactPrefersEmail(t *testing.T) {
	s := New()
	ctx := context.Background()

	phoneOnly := &models.Parent{TenantID: tenant, Name: "Neighbour", Email: "other@example.com", Phone: "555-0100"}
	byEmail := &models.Parent{TenantID: tenant, Name: "Homer", Email: "homer@example.com", Phone: "555-0199"}
	err := s.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		if err := q.CreateParent(ctx, phoneOnly); err != nil {
			return err
		}
		return q.CreateParent(ctx, byEmail)
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		got, err := q.FindParentByContact(ctx, tenant, "homer@example.com", "555-0100")
		require.NoError(t, err)
		assert.Equal(t, byEmail.ID, got.ID)

		got, err = q.FindParentByContact(ctx, tenant, "nobody@example.com", "555-0100")
		require.NoError(t, err)
		assert.Equal(t, phoneOnly.ID, got.ID)

		_, err = q.FindParentByContact(ctx, tenant, "", "")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
		_, err = q.FindParentByContact(ctx, "tenant-2", "homer@example.com", "")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestFindParentByContactPhoneMatchIsStable(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		for _, name := range []string{"Marge", "Patty", "Selma", "Jacqueline"} {
			if err := q.CreateParent(ctx, &models.Parent{TenantID: tenant, Name: name, Phone: "555-0142"}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		all, err := q.ListParents(ctx, tenant)
		require.NoError(t, err)
		oldest := all[0]
		for _, p := range all[1:] {
			if p.CreatedAt.Before(oldest.CreatedAt) || (p.CreatedAt.Equal(oldest.CreatedAt) && p.ID < oldest.ID) {
				oldest = p
			}
		}

		for i := 0; i < 20; i++ {
			got, err := q.FindParentByContact(ctx, tenant, "", "555-0142")
			require.NoError(t, err)
			assert.Equal(t, oldest.ID, got.ID)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateParentKeepsCreatedAt(t *testing.T) {
	s := New()
	ctx := context.Background()

	parent := &models.Parent{TenantID: tenant, Name: "Ned", Phone: "555-0111"}
	err := s.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		if err := q.CreateParent(ctx, parent); err != nil {
			return err
		}
		return q.UpdateParent(ctx, &models.Parent{ID: parent.ID, TenantID: tenant, Name: "Ned Flanders"})
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(ctx context.Context, q repositories.Queries) error {
		all, err := q.ListParents(ctx, tenant)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "Ned Flanders", all[0].Name)
		assert.Equal(t, parent.CreatedAt, all[0].CreatedAt)
		return nil
	})
	require.NoError(t, err)
}
