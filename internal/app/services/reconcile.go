package services

import (
	"context"
	"strings"

	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/app/models/dto"
	"github.com/yigit/eduadmin/internal/app/repositories"
	"github.com/yigit/eduadmin/internal/pkg/apperrors"
)

// referenceIndex resolves dto.Reference values against the records of one
// kind, matching ids first and names second.
type referenceIndex struct {
	byID   map[string]string
	byName map[string]string
}

func newReferenceIndex() *referenceIndex {
	return &referenceIndex{byID: map[string]string{}, byName: map[string]string{}}
}

func (x *referenceIndex) add(id, name string) {
	x.byID[id] = id
	if name = strings.TrimSpace(name); name != "" {
		if _, taken := x.byName[name]; !taken {
			x.byName[name] = id
		}
	}
}

// alias lets a client side key (e.g. a parent's temporary id) point at id
func (x *referenceIndex) alias(key, id string) {
	if key != "" {
		x.byID[key] = id
	}
}

// resolve returns the id ref points at. Empty references and the "none" and
// "other" sentinels resolve to nothing.
func (x *referenceIndex) resolve(ref dto.Reference) (string, bool) {
	if ref.IsEmpty() || ref.Is(models.RefNone) || ref.Is(models.RefOther) {
		return "", false
	}
	for _, c := range ref.Candidates() {
		if id, ok := x.byID[c]; ok {
			return id, true
		}
	}
	for _, c := range ref.Candidates() {
		if id, ok := x.byName[c]; ok {
			return id, true
		}
	}
	return "", false
}

func (x *referenceIndex) resolvePtr(ref dto.Reference) *string {
	if id, ok := x.resolve(ref); ok {
		return &id
	}
	return nil
}

// recordDiff pairs each input record with the existing record it replaces.
// matched[i] is nil when input i must be created; dup[i] is set when input i
// repeats the identity of an earlier input. Stale records have no input.
type recordDiff[E any] struct {
	matched []*E
	dup     []bool
	stale   []E
}

// diffKeys tells planDiff how to match records. Input keys are tried in
// order. identity names an input within the batch; two inputs with the same
// identity are duplicates. A nil identity uses the first non-empty key.
type diffKeys[E, I any] struct {
	existing func(*E) []string
	input    func(*I) []string
	identity func(*I) string
}

// planDiff matches inputs to existing records. An existing record is claimed
// by at most one input.
func planDiff[E, I any](existing []E, inputs []I, keys diffKeys[E, I]) recordDiff[E] {
	index := make(map[string]int, len(existing))
	for j := range existing {
		for _, k := range keys.existing(&existing[j]) {
			if _, taken := index[k]; k != "" && !taken {
				index[k] = j
			}
		}
	}

	d := recordDiff[E]{matched: make([]*E, len(inputs)), dup: make([]bool, len(inputs))}
	claimed := make([]bool, len(existing))
	seen := make(map[string]bool, len(inputs))
	for i := range inputs {
		candidates := keys.input(&inputs[i])
		identity := firstKey(candidates)
		if keys.identity != nil {
			identity = keys.identity(&inputs[i])
		}
		if identity != "" {
			if seen[identity] {
				d.dup[i] = true
				continue
			}
			seen[identity] = true
		}
		for _, k := range candidates {
			if j, ok := index[k]; ok && k != "" && !claimed[j] {
				claimed[j] = true
				d.matched[i] = &existing[j]
				break
			}
		}
	}

	for j := range existing {
		if !claimed[j] {
			d.stale = append(d.stale, existing[j])
		}
	}
	return d
}

func firstKey(keys []string) string {
	for _, k := range keys {
		if k != "" {
			return k
		}
	}
	return ""
}

func nameKey(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return ""
	}
	return "name:" + name
}

func idKey(id string) string {
	if id == "" {
		return ""
	}
	return "id:" + id
}

func duplicateError(name string) error {
	return apperrors.NewConflictError(apperrors.CodeDuplicateIdentity, "duplicate record in batch: "+name)
}

// writeRecord runs fn in a savepoint so a failing record is undone alone and
// added to failures; its siblings keep their writes.
func writeRecord(ctx context.Context, q repositories.Queries, failures *apperrors.BatchError, index int, name string, fn repositories.TxFn) bool {
	if err := q.Savepoint(ctx, fn); err != nil {
		failures.Add(index, name, storeError(err, name))
		return false
	}
	return true
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sameRef(a, b *string) bool {
	return deref(a) == deref(b)
}
