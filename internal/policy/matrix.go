package policy

import (
	"fmt"
	"sort"
	"strings"

	"fluxao-backend-go/internal/models"
)

type roleSet map[models.Role]struct{}

// PermissionMatrix answers which role may run which task on which provider.
// Anything it has not been told about is denied, except unknown tasks for
// the roles explicitly listed as allowed to run them.
type PermissionMatrix struct {
	roleTasks        map[models.Role]map[string]struct{}
	knownTasks       map[string]struct{}
	unknownTaskRoles roleSet
	providerRoles    map[string]roleSet
}

func NewPermissionMatrix(roleTasks map[string][]string, unknownTaskRoles []string, providerRoles map[string][]string) (*PermissionMatrix, error) {
	m := &PermissionMatrix{
		roleTasks:        map[models.Role]map[string]struct{}{},
		knownTasks:       map[string]struct{}{},
		unknownTaskRoles: roleSet{},
		providerRoles:    map[string]roleSet{},
	}
	for rawRole, tasks := range roleTasks {
		role, ok := models.LookupRole(rawRole)
		if !ok {
			return nil, fmt.Errorf("unknown role %q", rawRole)
		}
		set := map[string]struct{}{}
		for _, task := range tasks {
			task = strings.TrimSpace(task)
			if task == "" {
				continue
			}
			set[task] = struct{}{}
			m.knownTasks[task] = struct{}{}
		}
		m.roleTasks[role] = set
	}
	for _, rawRole := range unknownTaskRoles {
		role, ok := models.LookupRole(rawRole)
		if !ok {
			return nil, fmt.Errorf("unknown role %q in unknown_task_roles", rawRole)
		}
		m.unknownTaskRoles[role] = struct{}{}
	}
	for provider, roles := range providerRoles {
		set := roleSet{}
		for _, rawRole := range roles {
			role, ok := models.LookupRole(rawRole)
			if !ok {
				return nil, fmt.Errorf("unknown role %q for provider %s", rawRole, provider)
			}
			set[role] = struct{}{}
		}
		m.providerRoles[normalizeProvider(provider)] = set
	}
	return m, nil
}

func (m *PermissionMatrix) CanPerformTask(role models.Role, task string) bool {
	task = strings.TrimSpace(task)
	if _, known := m.knownTasks[task]; !known {
		_, ok := m.unknownTaskRoles[role]
		return ok
	}
	_, ok := m.roleTasks[role][task]
	return ok
}

func (m *PermissionMatrix) CanUseProvider(role models.Role, provider string) bool {
	roles, ok := m.providerRoles[normalizeProvider(provider)]
	if !ok {
		return false
	}
	_, ok = roles[role]
	return ok
}

// TasksFor lists the known tasks a role may run, sorted.
func (m *PermissionMatrix) TasksFor(role models.Role) []string {
	out := make([]string, 0, len(m.roleTasks[role]))
	for task := range m.roleTasks[role] {
		out = append(out, task)
	}
	sort.Strings(out)
	return out
}

// ProvidersFor lists the providers a role may call, sorted.
func (m *PermissionMatrix) ProvidersFor(role models.Role) []string {
	out := []string{}
	for provider, roles := range m.providerRoles {
		if _, ok := roles[role]; ok {
			out = append(out, provider)
		}
	}
	sort.Strings(out)
	return out
}
