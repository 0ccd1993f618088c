package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUESTION VECTOR INDEX
// ══════════════════════════════════════════════════════════════════════════════

// VectorIndex implements challenge.VectorIndex on the question_embeddings
// table. Similarity search scans the module's vectors and computes cosine
// similarity in process; per-module cardinality is small (one row per won
// question) so a sequential scan is adequate.
type VectorIndex struct {
	conn *Connection
}

// NewVectorIndex creates a new VectorIndex.
func NewVectorIndex(conn *Connection) *VectorIndex {
	return &VectorIndex{conn: conn}
}

// Upsert stores a question embedding under the given ID.
func (v *VectorIndex) Upsert(ctx context.Context, id, moduleID, question string, vector []float64) error {
	if len(vector) == 0 {
		return shared.NewDomainError("challenge", "Upsert", shared.ErrInvalidInput, "embedding vector is empty")
	}

	query := `
		INSERT INTO question_embeddings (id, module_id, question, vector)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			module_id = EXCLUDED.module_id,
			question = EXCLUDED.question,
			vector = EXCLUDED.vector
	`

	if _, err := v.conn.Exec(ctx, query, id, moduleID, question, vector); err != nil {
		return fmt.Errorf("failed to upsert question embedding: %w", err)
	}
	return nil
}

// QueryNearest returns the highest cosine similarity against stored vectors
// in the module, along with the matched question text. ok is false when the
// module has no stored vectors.
func (v *VectorIndex) QueryNearest(ctx context.Context, moduleID string, vector []float64) (string, float64, bool, error) {
	query := `
		SELECT question, vector
		FROM question_embeddings
		WHERE module_id = $1
	`

	rows, err := v.conn.Query(ctx, query, moduleID)
	if err != nil {
		return "", 0, false, fmt.Errorf("failed to query question embeddings: %w", err)
	}
	defer rows.Close()

	var (
		bestQuestion   string
		bestSimilarity float64
		found          bool
	)

	for rows.Next() {
		var (
			question string
			stored   []float64
		)
		if err := rows.Scan(&question, &stored); err != nil {
			return "", 0, false, fmt.Errorf("failed to scan question embedding: %w", err)
		}

		sim := cosineSimilarity(vector, stored)
		if !found || sim > bestSimilarity {
			bestQuestion = question
			bestSimilarity = sim
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return "", 0, false, err
	}

	return bestQuestion, bestSimilarity, found, nil
}

// cosineSimilarity returns the cosine of the angle between two vectors.
// Mismatched lengths and zero vectors yield 0 rather than an error, which
// reads as "not similar" at the dedup gate.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
