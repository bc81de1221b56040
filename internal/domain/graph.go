package domain

import (
	"sort"
)

// AddTask inserts a task into the graph. Duplicate ids are rejected, and the
// insertion is refused outright if the task's edges would close a cycle.
func (d *Document) AddTask(task TaskNode) error {
	if task.ID == "" {
		return &ValidationError{Field: "taskId", Message: "must not be empty"}
	}
	if _, exists := d.Tasks[task.ID]; exists {
		return &ValidationError{Field: "taskId", Message: "task " + task.ID + " already exists"}
	}
	if !task.Status.Valid() {
		return &ValidationError{Field: "status", Message: "invalid task status " + string(task.Status)}
	}
	for i, dep := range task.Dependencies {
		if !dep.Type.Valid() {
			return &ValidationError{Field: "dependencies", Message: "invalid dependency type " + string(dep.Type)}
		}
		if _, ok := d.Tasks[dep.From]; !ok && dep.From != task.ID {
			return &ValidationError{Field: "dependencies", Message: "unknown prerequisite task " + dep.From}
		}
		task.Dependencies[i].To = task.ID
	}

	d.Tasks[task.ID] = task
	if err := d.ValidateGraph(); err != nil {
		delete(d.Tasks, task.ID)
		return err
	}
	return nil
}

// AddDependency adds a directed edge from a prerequisite task to a dependent
// one. The insertion is refused outright if the edge would close a cycle.
// Re-adding an existing edge refreshes its type.
func (d *Document) AddDependency(from, to string, depType DependencyType) error {
	if !depType.Valid() {
		return &ValidationError{Field: "type", Message: "invalid dependency type " + string(depType)}
	}
	if _, ok := d.Tasks[from]; !ok {
		return &ValidationError{Field: "from", Message: "task " + from + " not found"}
	}
	task, ok := d.Tasks[to]
	if !ok {
		return &ValidationError{Field: "to", Message: "task " + to + " not found"}
	}

	replaced := false
	for i, dep := range task.Dependencies {
		if dep.From == from && dep.To == to {
			task.Dependencies[i].Type = depType
			replaced = true
			break
		}
	}
	if !replaced {
		task.Dependencies = append(task.Dependencies, Dependency{From: from, To: to, Type: depType})
	}
	d.Tasks[to] = task

	if err := d.ValidateGraph(); err != nil {
		kept := task.Dependencies[:0]
		for _, dep := range task.Dependencies {
			if !(dep.From == from && dep.To == to) {
				kept = append(kept, dep)
			}
		}
		task.Dependencies = kept
		d.Tasks[to] = task
		return err
	}
	return nil
}

// RemoveDependency drops the edge from -> to. Removing an absent edge is a
// no-op success.
func (d *Document) RemoveDependency(from, to string) {
	task, ok := d.Tasks[to]
	if !ok {
		return
	}
	kept := task.Dependencies[:0]
	for _, dep := range task.Dependencies {
		if !(dep.From == from && dep.To == to) {
			kept = append(kept, dep)
		}
	}
	if len(kept) == 0 {
		task.Dependencies = nil
	} else {
		task.Dependencies = kept
	}
	d.Tasks[to] = task
}

// SetTaskStatus transitions a task's status. Moving to in_progress or
// completed requires every required prerequisite to be completed already.
func (d *Document) SetTaskStatus(taskID string, status TaskStatus) error {
	task, exists := d.Tasks[taskID]
	if !exists {
		return &ValidationError{Field: "taskId", Message: "task " + taskID + " not found"}
	}
	if !status.Valid() {
		return &ValidationError{Field: "status", Message: "invalid task status " + string(status)}
	}
	if status == TaskInProgress || status == TaskCompleted {
		if missing := d.missingRequiredPrereqs(task); len(missing) > 0 {
			return &DependencyNotSatisfiedError{TaskID: taskID, Missing: missing}
		}
	}
	task.Status = status
	d.Tasks[taskID] = task
	return nil
}

// UpdateTaskFields merges non-nil content fields onto a task. Status and
// dependencies are untouched here; those mutate through their own operations.
func (d *Document) UpdateTaskFields(taskID string, title, description *string, steps []Step, sources []Source) (TaskNode, error) {
	task, exists := d.Tasks[taskID]
	if !exists {
		return TaskNode{}, &ValidationError{Field: "taskId", Message: "task " + taskID + " not found"}
	}
	if title != nil {
		task.Title = *title
	}
	if description != nil {
		task.Description = *description
	}
	if steps != nil {
		task.Steps = steps
	}
	if sources != nil {
		task.Sources = sources
	}
	d.Tasks[taskID] = task
	return task, nil
}

// DeleteTask removes a task and cascades, dropping every edge that references
// the deleted id. Deleting an absent id is a no-op success.
func (d *Document) DeleteTask(taskID string) {
	if _, exists := d.Tasks[taskID]; !exists {
		return
	}
	delete(d.Tasks, taskID)
	for id, task := range d.Tasks {
		kept := task.Dependencies[:0]
		for _, dep := range task.Dependencies {
			if dep.From != taskID && dep.To != taskID {
				kept = append(kept, dep)
			}
		}
		if len(kept) == 0 {
			task.Dependencies = nil
		} else {
			task.Dependencies = kept
		}
		d.Tasks[id] = task
	}
}

// ExecutableTasks returns the pending tasks whose required prerequisites are
// all completed, ordered by id for stable output.
func (d *Document) ExecutableTasks() []TaskNode {
	var out []TaskNode
	for _, task := range d.Tasks {
		if task.Status != TaskPending {
			continue
		}
		if len(d.missingRequiredPrereqs(task)) == 0 {
			out = append(out, task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *Document) missingRequiredPrereqs(task TaskNode) []string {
	var missing []string
	for _, dep := range task.Dependencies {
		if dep.Type != DependencyRequired {
			continue
		}
		upstream, ok := d.Tasks[dep.From]
		if !ok || upstream.Status != TaskCompleted {
			missing = append(missing, dep.From)
		}
	}
	return missing
}

// ValidateGraph runs full-graph cycle detection over every dependency edge.
// On failure it returns a CycleError naming the participating task ids.
func (d *Document) ValidateGraph() error {
	edges := make(map[string][]string, len(d.Tasks))
	for _, task := range d.Tasks {
		for _, dep := range task.Dependencies {
			edges[dep.From] = append(edges[dep.From], dep.To)
		}
	}

	const (
		white = 0 // unvisited
		gray  = 1 // in current path
		black = 2 // finished
	)
	color := make(map[string]int, len(d.Tasks))
	parent := make(map[string]string)

	var cyclePath []string
	var dfs func(node string) bool
	dfs = func(node string) bool {
		color[node] = gray
		for _, next := range edges[node] {
			if color[next] == gray {
				// Found a cycle: walk parents back to close the loop.
				cyclePath = []string{next}
				current := node
				for current != next {
					cyclePath = append(cyclePath, current)
					current = parent[current]
				}
				cyclePath = append(cyclePath, next)
				for i, j := 0, len(cyclePath)-1; i < j; i, j = i+1, j-1 {
					cyclePath[i], cyclePath[j] = cyclePath[j], cyclePath[i]
				}
				return true
			}
			if color[next] == white {
				parent[next] = node
				if dfs(next) {
					return true
				}
			}
		}
		color[node] = black
		return false
	}

	ids := make([]string, 0, len(d.Tasks))
	for id := range d.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if color[id] == white {
			if dfs(id) {
				return &CycleError{Path: cyclePath}
			}
		}
	}
	return nil
}
