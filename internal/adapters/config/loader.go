// Package config provides the entity loader for bench manifests.
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.trai.ch/bench/internal/adapters/fs"
	"go.trai.ch/bench/internal/core/domain"
	"go.trai.ch/bench/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.EntityLoader = (*Loader)(nil)

// Loader implements ports.EntityLoader over a YAML manifest. Data sources
// that exist on disk are content-fingerprinted at load time; declared-only
// sources fall back to hashing their descriptor and recipe, so fingerprints
// stay stable across restarts either way.
type Loader struct {
	hasher *fs.Hasher
}

// NewLoader creates a Loader using the given hasher for data sources.
func NewLoader(hasher *fs.Hasher) *Loader {
	return &Loader{hasher: hasher}
}

// Load reads a manifest and returns validated entity records, ordered by
// kind and identifier so registration order is deterministic.
func (l *Loader) Load(path string) ([]domain.Entity, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read manifest")
	}

	var file Benchfile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.Wrap(err, "failed to parse manifest")
	}

	if err := validateReferences(&file); err != nil {
		return nil, err
	}

	var entities []domain.Entity

	for _, name := range sortedKeys(file.Data) {
		entity, err := l.dataEntity(name, file.Data[name], filepath.Dir(path))
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}

	for _, name := range sortedKeys(file.Models) {
		dto := file.Models[name]
		entities = append(entities, domain.Model{
			ID:     domain.NewInternedString(name),
			Data:   domain.NewInternedString(dto.Data),
			Params: dto.Params,
		})
	}

	for _, name := range sortedKeys(file.Workloads) {
		dto := file.Workloads[name]
		kinds := make([]domain.DeviceKind, len(dto.Devices))
		for i, k := range dto.Devices {
			kinds[i] = domain.DeviceKind(k)
		}
		entities = append(entities, domain.Workload{
			ID:          domain.NewInternedString(name),
			Operation:   dto.Operation,
			Params:      dto.Params,
			Data:        internStrings(dto.Data),
			Models:      internStrings(dto.Models),
			DeviceKinds: kinds,
		})
	}

	for _, name := range sortedKeys(file.Platforms) {
		dto := file.Platforms[name]
		entities = append(entities, domain.Platform{
			ID:           domain.NewInternedString(name),
			Capabilities: dto.Capabilities,
			Version:      dto.Version,
		})
	}

	for _, name := range sortedKeys(file.Devices) {
		dto := file.Devices[name]
		entities = append(entities, domain.Device{
			ID:        domain.NewInternedString(name),
			Kind:      domain.DeviceKind(dto.Kind),
			Capacity:  dto.Capacity,
			Exclusive: dto.Exclusive,
		})
	}

	for _, name := range sortedKeys(file.Tasks) {
		dto := file.Tasks[name]
		entities = append(entities, domain.Task{
			ID:       domain.NewInternedString(name),
			Workload: domain.NewInternedString(dto.Workload),
			Platform: domain.NewInternedString(dto.Platform),
			Requirement: domain.DeviceRequirement{
				Kind:      domain.DeviceKind(dto.Device.Kind),
				Slots:     dto.Device.Slots,
				Exclusive: dto.Device.Exclusive,
			},
			Params: dto.Params,
		})
	}

	return entities, nil
}

func (l *Loader) dataEntity(name string, dto DataDTO, baseDir string) (domain.Entity, error) {
	refs, err := parseRefs(dto.GeneratedBy)
	if err != nil {
		return nil, zerr.With(err, "data", name)
	}

	content, err := l.contentFingerprint(dto, baseDir)
	if err != nil {
		return nil, err
	}

	return domain.Data{
		ID:          domain.NewInternedString(name),
		Source:      dto.Source,
		Recipe:      dto.Recipe,
		GeneratedBy: refs,
		Content:     content,
	}, nil
}

func (l *Loader) contentFingerprint(dto DataDTO, baseDir string) (domain.Fingerprint, error) {
	if dto.Source != "" {
		source := dto.Source
		if !filepath.IsAbs(source) {
			source = filepath.Join(baseDir, source)
		}
		if _, err := os.Stat(source); err == nil {
			return l.hasher.ComputeSourceFingerprint(source)
		}
	}
	// Generated or remote data: hash the deterministic generation recipe.
	return domain.HashBytes([]byte(dto.Source + "\x00" + dto.Recipe)), nil
}

// validateReferences checks every cross-reference in the manifest against the
// declared names, first collecting the namespaces and then walking the users,
// so declaration order never matters.
func validateReferences(file *Benchfile) error {
	for name, dto := range file.Models {
		if dto.Data != "" && !has(file.Data, dto.Data) {
			return missingRef("model", name, "data", dto.Data)
		}
	}

	for name, dto := range file.Workloads {
		for _, ref := range dto.Data {
			if !has(file.Data, ref) {
				return missingRef("workload", name, "data", ref)
			}
		}
		for _, ref := range dto.Models {
			if !has(file.Models, ref) {
				return missingRef("workload", name, "model", ref)
			}
		}
	}

	for name, dto := range file.Tasks {
		if !has(file.Workloads, dto.Workload) {
			return missingRef("task", name, "workload", dto.Workload)
		}
		if dto.Platform != "" && !has(file.Platforms, dto.Platform) {
			return missingRef("task", name, "platform", dto.Platform)
		}
	}

	for name, dto := range file.Data {
		for _, raw := range dto.GeneratedBy {
			ref, err := parseRef(raw)
			if err != nil {
				return zerr.With(err, "data", name)
			}
			switch ref.Kind {
			case domain.KindData:
				if !has(file.Data, ref.ID.String()) {
					return missingRef("data", name, "data", ref.ID.String())
				}
			case domain.KindModel:
				if !has(file.Models, ref.ID.String()) {
					return missingRef("data", name, "model", ref.ID.String())
				}
			default:
				return zerr.With(zerr.New("unsupported generator kind"), "ref", raw)
			}
		}
	}

	return nil
}

func missingRef(kind, name, refKind, ref string) error {
	err := zerr.Wrap(domain.ErrUnresolvedDependency, "manifest references unknown "+refKind)
	err = zerr.With(err, kind, name)
	return zerr.With(err, refKind, ref)
}

func parseRefs(raw []string) ([]domain.Ref, error) {
	refs := make([]domain.Ref, 0, len(raw))
	for _, r := range raw {
		ref, err := parseRef(r)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// parseRef parses a "kind:name" reference; a bare name defaults to data.
func parseRef(raw string) (domain.Ref, error) {
	kind, name, found := strings.Cut(raw, ":")
	if !found {
		return domain.Ref{Kind: domain.KindData, ID: domain.NewInternedString(raw)}, nil
	}
	switch domain.Kind(kind) {
	case domain.KindData, domain.KindModel:
		return domain.Ref{Kind: domain.Kind(kind), ID: domain.NewInternedString(name)}, nil
	default:
		return domain.Ref{}, zerr.With(zerr.New("unsupported reference kind"), "ref", raw)
	}
}

func has[V any](m map[string]V, key string) bool {
	_, ok := m[key]
	return ok
}

func internStrings(strs []string) []domain.InternedString {
	res := make([]domain.InternedString, len(strs))
	for i, s := range strs {
		res[i] = domain.NewInternedString(s)
	}
	return res
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
