package sqlite

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL CHECK (status IN ('DRAFT', 'ACTIVE', 'PAUSED')),
				triggers_count INTEGER NOT NULL DEFAULT 0,
				actions_count INTEGER NOT NULL DEFAULT 0,
				failure_policy TEXT NOT NULL DEFAULT '',
				owner TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			);

			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_owner ON workflows(owner);

			CREATE TABLE nodes (
				workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id TEXT NOT NULL,
				kind TEXT NOT NULL CHECK (kind IN ('TRIGGER', 'ACTION', 'CONDITION')),
				label TEXT NOT NULL DEFAULT '',
				position_x REAL NOT NULL DEFAULT 0,
				position_y REAL NOT NULL DEFAULT 0,
				config TEXT NOT NULL DEFAULT '{}',
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				PRIMARY KEY (workflow_id, id)
			);

			CREATE TABLE edges (
				workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id TEXT NOT NULL,
				source_node_id TEXT NOT NULL,
				target_node_id TEXT NOT NULL,
				label TEXT NOT NULL DEFAULT '',
				condition_tag TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL,
				PRIMARY KEY (workflow_id, id)
			);

			CREATE INDEX idx_edges_source ON edges(workflow_id, source_node_id);
		`,
		2: `
			CREATE TABLE workflow_runs (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				status TEXT NOT NULL CHECK (status IN ('RUNNING', 'SUCCEEDED', 'FAILED')),
				started_at TIMESTAMP NOT NULL,
				completed_at TIMESTAMP,
				failure_reason TEXT NOT NULL DEFAULT '',
				failure_detail TEXT NOT NULL DEFAULT '',
				event TEXT,
				actions_attempted INTEGER NOT NULL DEFAULT 0,
				actions_succeeded INTEGER NOT NULL DEFAULT 0,
				actions_failed INTEGER NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_workflow_runs_workflow ON workflow_runs(workflow_id, started_at);
		`,
	}
}
