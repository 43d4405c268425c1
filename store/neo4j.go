// store/neo4j.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	verdict_errors "github.com/sentinelworks/verdict/errors"
	logger "github.com/sentinelworks/verdict/logging"
	"github.com/sentinelworks/verdict/model"
)

// Neo4jStore persists each policy set version as its own immutable node.
// Nothing is ever updated or deleted; Put only creates the next version,
// keyed by (id, version). All queries run on the driver's context-aware
// session API so caller cancellation reaches in-flight reads.
type Neo4jStore struct {
	Driver neo4j.DriverWithContext
}

func NewNeo4jStore(driver neo4j.DriverWithContext) (*Neo4jStore, error) {
	s := &Neo4jStore{Driver: driver}
	if err := s.ensureConstraints(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Neo4jStore) ensureConstraints(ctx context.Context) error {
	session := s.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(ctx); err != nil {
			logger.Error("Failed to close Neo4j session", zap.Error(err))
		}
	}()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_policy_set_version IF NOT EXISTS
        FOR (p:POLICY_SET) REQUIRE (p.id, p.version) IS UNIQUE
        `
		if _, err := tx.Run(ctx, query, nil); err != nil {
			return nil, fmt.Errorf("failed to create unique constraint: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to ensure unique constraint on policy set versions", zap.Error(err))
		return err
	}
	return nil
}

func (s *Neo4jStore) Put(ctx context.Context, set model.PolicySet) (string, int, error) {
	if err := validatePolicySet(&set); err != nil {
		return "", 0, err
	}

	set.CreatedAt = time.Now().UTC()
	rulesJSON, err := json.Marshal(set.Rules)
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal rules: %w", err)
	}

	session := s.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		// Version assignment and node creation happen in one transaction so
		// a concurrent Put cannot claim the same version number.
		query := `
        OPTIONAL MATCH (prev:POLICY_SET {id: $id})
        WITH coalesce(max(prev.version), 0) + 1 AS next
        CREATE (p:POLICY_SET {
            id: $id,
            version: next,
            description: $description,
            combining_algorithm: $algorithm,
            rules: $rules,
            created_at: $createdAt
        })
        RETURN p.version AS version
        `
		res, err := tx.Run(ctx, query, map[string]interface{}{
			"id":          set.ID,
			"description": set.Description,
			"algorithm":   string(set.CombiningAlgorithm),
			"rules":       string(rulesJSON),
			"createdAt":   set.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return nil, verdict_errors.ErrDatabaseOperation
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, verdict_errors.ErrDatabaseOperation
		}
		version, _ := record.Get("version")
		return version, nil
	})
	if err != nil {
		logger.Error("Failed to store policy set version",
			zap.String("policySetID", set.ID), zap.Error(err))
		return "", 0, err
	}

	version := int(result.(int64))
	logger.Info("Stored policy set version",
		zap.String("policySetID", set.ID), zap.Int("version", version))
	return set.ID, version, nil
}

func (s *Neo4jStore) Get(ctx context.Context, id string, version int) (*model.PolicySet, error) {
	session := s.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		var query string
		params := map[string]interface{}{"id": id}
		if version == LatestVersion {
			query = `
            MATCH (p:POLICY_SET {id: $id})
            RETURN p ORDER BY p.version DESC LIMIT 1
            `
		} else {
			query = `
            MATCH (p:POLICY_SET {id: $id, version: $version})
            RETURN p
            `
			params["version"] = version
		}
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, verdict_errors.ErrDatabaseOperation
		}
		if !res.Next(ctx) {
			return nil, &verdict_errors.NotFoundError{ID: id, Version: version}
		}
		node := res.Record().Values[0].(neo4j.Node)
		return policySetFromNode(node)
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.PolicySet), nil
}

func (s *Neo4jStore) ListVersions(ctx context.Context, id string) (*Versions, error) {
	session := s.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		query := `
        MATCH (p:POLICY_SET {id: $id})
        RETURN p.version AS version ORDER BY p.version ASC
        `
		res, err := tx.Run(ctx, query, map[string]interface{}{"id": id})
		if err != nil {
			return nil, verdict_errors.ErrDatabaseOperation
		}
		var versions []int
		for res.Next(ctx) {
			v, _ := res.Record().Get("version")
			versions = append(versions, int(v.(int64)))
		}
		if len(versions) == 0 {
			return nil, &verdict_errors.NotFoundError{ID: id}
		}
		return versions, nil
	})
	if err != nil {
		return nil, err
	}
	return newVersions(result.([]int)), nil
}

func (s *Neo4jStore) ListIDs(ctx context.Context, limit, offset int) ([]string, error) {
	if limit < 0 || offset < 0 {
		return nil, verdict_errors.ErrInvalidPagination
	}

	session := s.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		query := `
        MATCH (p:POLICY_SET)
        RETURN DISTINCT p.id AS id ORDER BY id ASC SKIP $offset LIMIT $limit
        `
		if limit == 0 {
			query = `
            MATCH (p:POLICY_SET)
            RETURN DISTINCT p.id AS id ORDER BY id ASC SKIP $offset
            `
		}
		res, err := tx.Run(ctx, query, map[string]interface{}{"offset": offset, "limit": limit})
		if err != nil {
			return nil, verdict_errors.ErrDatabaseOperation
		}
		ids := []string{}
		for res.Next(ctx) {
			v, _ := res.Record().Get("id")
			ids = append(ids, v.(string))
		}
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

func policySetFromNode(node neo4j.Node) (*model.PolicySet, error) {
	set := &model.PolicySet{}
	props := node.Props

	if v, ok := props["id"].(string); ok {
		set.ID = v
	}
	if v, ok := props["version"].(int64); ok {
		set.Version = int(v)
	}
	if v, ok := props["description"].(string); ok {
		set.Description = v
	}
	if v, ok := props["combining_algorithm"].(string); ok {
		set.CombiningAlgorithm = model.CombiningAlgorithm(v)
	}
	if v, ok := props["created_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			set.CreatedAt = ts
		}
	}
	if v, ok := props["rules"].(string); ok {
		if err := json.Unmarshal([]byte(v), &set.Rules); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rules for policy set %s: %w", set.ID, err)
		}
	}
	return set, nil
}
