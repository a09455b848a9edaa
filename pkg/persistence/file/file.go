// Package file provides file-based persistence for workflow graphs and runs.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/persistence"
)

// document is the on-disk form of one workflow with its graph.
type document struct {
	Workflow *models.Workflow `json:"workflow"`
	Nodes    []*models.Node   `json:"nodes"`
	Edges    []*models.Edge   `json:"edges"`
}

// Persistence implements the persistence.Persistence interface using the file system.
// Each workflow is one JSON document. Writes are serialized by a single mutex.
type Persistence struct {
	root string
	mu   sync.RWMutex

	workflowRepo *WorkflowRepository
	nodeRepo     *NodeRepository
	edgeRepo     *EdgeRepository
	runRepo      *RunRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.workflowRepo = &WorkflowRepository{store: p}
	p.nodeRepo = &NodeRepository{store: p}
	p.edgeRepo = &EdgeRepository{store: p}
	p.runRepo = &RunRepository{store: p}

	return p
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists and is writable.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if err := os.MkdirAll(fp.root, 0750); err != nil {
		return persistence.StorageError("health check", err)
	}

	probe, err := os.CreateTemp(fp.root, ".health-*")
	if err != nil {
		return persistence.StorageError("health check", err)
	}

	_ = probe.Close()

	return os.Remove(probe.Name())
}

// nolint:ireturn
func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

// nolint:ireturn
func (fp *Persistence) NodeRepository() persistence.NodeRepository {
	return fp.nodeRepo
}

// nolint:ireturn
func (fp *Persistence) EdgeRepository() persistence.EdgeRepository {
	return fp.edgeRepo
}

// nolint:ireturn
func (fp *Persistence) RunRepository() persistence.RunRepository {
	return fp.runRepo
}

func (fp *Persistence) workflowsDir() string {
	return filepath.Join(fp.root, "workflows")
}

func (fp *Persistence) runsDir() string {
	return filepath.Join(fp.root, "runs")
}

func safeName(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", persistence.NewValidationError("id", fmt.Sprintf("invalid identifier %q", id))
	}

	return id + ".json", nil
}

// load reads a workflow document. Callers hold the lock.
func (fp *Persistence) load(workflowID string) (*document, error) {
	name, err := safeName(workflowID)
	if err != nil {
		return nil, err
	}

	body, err := os.ReadFile(filepath.Join(fp.workflowsDir(), name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, persistence.StorageError("read workflow "+workflowID, err)
	}

	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, persistence.StorageError("unmarshal workflow "+workflowID, err)
	}

	if doc.Workflow == nil {
		return nil, persistence.ErrWorkflowNotFound
	}

	return &doc, nil
}

// save writes a workflow document atomically. Callers hold the write lock.
func (fp *Persistence) save(doc *document) error {
	return writeJSON(fp.workflowsDir(), doc.Workflow.ID, doc)
}

func writeJSON(dir, id string, value any) error {
	name, err := safeName(id)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return persistence.StorageError("create directory", err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return persistence.StorageError("marshal "+id, err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+"-*")
	if err != nil {
		return persistence.StorageError("write "+id, err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return persistence.StorageError("write "+id, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return persistence.StorageError("write "+id, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return persistence.StorageError("write "+id, err)
	}

	return nil
}

// listDocuments loads every workflow document. Callers hold the lock.
func (fp *Persistence) listDocuments() ([]*document, error) {
	entries, err := os.ReadDir(fp.workflowsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, persistence.StorageError("list workflows", err)
	}

	docs := make([]*document, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}

		doc, err := fp.load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

func removeFile(dir, name string) error {
	if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
		return persistence.StorageError("remove "+name, err)
	}

	return nil
}
