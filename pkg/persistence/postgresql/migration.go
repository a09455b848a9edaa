package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(20) NOT NULL CHECK (status IN ('DRAFT', 'ACTIVE', 'PAUSED')),
				triggers_count INT NOT NULL DEFAULT 0,
				actions_count INT NOT NULL DEFAULT 0,
				failure_policy VARCHAR(50) NOT NULL DEFAULT '',
				owner VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_owner ON workflows(owner);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			CREATE TABLE nodes (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				kind VARCHAR(20) NOT NULL CHECK (kind IN ('TRIGGER', 'ACTION', 'CONDITION')),
				label VARCHAR(255) NOT NULL DEFAULT '',
				position_x DOUBLE PRECISION NOT NULL DEFAULT 0,
				position_y DOUBLE PRECISION NOT NULL DEFAULT 0,
				config JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (workflow_id, id)
			);

			CREATE INDEX idx_nodes_kind ON nodes(workflow_id, kind);

			CREATE TABLE edges (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				source_node_id VARCHAR(255) NOT NULL,
				target_node_id VARCHAR(255) NOT NULL,
				label VARCHAR(255) NOT NULL DEFAULT '',
				condition_tag VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (workflow_id, id)
			);

			CREATE INDEX idx_edges_source ON edges(workflow_id, source_node_id);
			CREATE INDEX idx_edges_target ON edges(workflow_id, target_node_id);
		`,
		2: `
			-- Runs are kept after their workflow is deleted.
			CREATE TABLE workflow_runs (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				status VARCHAR(20) NOT NULL CHECK (status IN ('RUNNING', 'SUCCEEDED', 'FAILED')),
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				failure_reason VARCHAR(100) NOT NULL DEFAULT '',
				failure_detail TEXT NOT NULL DEFAULT '',
				event JSONB,
				actions_attempted INT NOT NULL DEFAULT 0,
				actions_succeeded INT NOT NULL DEFAULT 0,
				actions_failed INT NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_workflow_runs_workflow ON workflow_runs(workflow_id, started_at DESC);
			CREATE INDEX idx_workflow_runs_status ON workflow_runs(status);
		`,
	}
}
