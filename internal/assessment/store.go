package assessment

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/db"
)

// Store persists sessions, situations, answers and results. It is the only
// writer of those tables.
type Store struct {
	db *db.DB
}

// NewStore creates a new assessment store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

const sessionColumns = `id, player_id, language, status, phase, situation_index, pending_traits, hint_traits, created_at, started_at, completed_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*Session, error) {
	var s Session
	var phase sql.NullString
	var pending, hints string
	var startedAt, completedAt sql.NullTime

	if err := row.Scan(&s.ID, &s.PlayerID, &s.Language, &s.Status, &phase, &s.SituationIndex,
		&pending, &hints, &s.CreatedAt, &startedAt, &completedAt); err != nil {
		return nil, err
	}
	s.Phase = Phase(phase.String)
	if err := json.Unmarshal([]byte(pending), &s.PendingTraits); err != nil {
		return nil, fmt.Errorf("decoding pending traits: %w", err)
	}
	if err := json.Unmarshal([]byte(hints), &s.HintTraits); err != nil {
		return nil, fmt.Errorf("decoding hint traits: %w", err)
	}
	if startedAt.Valid {
		s.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		s.CompletedAt = &completedAt.Time
	}
	return &s, nil
}

func encodeCodes(codes []string) string {
	if len(codes) == 0 {
		return "[]"
	}
	b, err := json.Marshal(codes)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func nullPhase(p Phase) sql.NullString {
	return sql.NullString{String: string(p), Valid: p != PhaseNone}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// CreateSession inserts a new session.
func (s *Store) CreateSession(ctx context.Context, sess Session) (*Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	if sess.Status == "" {
		sess.Status = StatusCreated
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.PlayerID, sess.Language, sess.Status, nullPhase(sess.Phase), sess.SituationIndex,
		encodeCodes(sess.PendingTraits), encodeCodes(sess.HintTraits), sess.CreatedAt,
		nullTime(sess.StartedAt), nullTime(sess.CompletedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}
	return &sess, nil
}

// GetSession retrieves a session by ID. It returns nil, nil when missing.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return sess, nil
}

// GetActiveSession returns the player's most recent non-terminal session.
func (s *Store) GetActiveSession(ctx context.Context, playerID int64) (*Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE player_id = ? AND status NOT IN (?, ?)
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		playerID, StatusCompleted, StatusAbandoned))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting active session: %w", err)
	}
	return sess, nil
}

// ListSessions returns every session of a player, newest first.
func (s *Store) ListSessions(ctx context.Context, playerID int64) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE player_id = ? ORDER BY created_at DESC, rowid DESC`,
		playerID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// updateSession writes the mutable session fields. The write only applies
// while the session is non-terminal and the situation index does not move
// backwards, and started_at is only ever set once. It reports whether a
// row was changed.
func updateSession(ctx context.Context, ex execer, sess *Session) (bool, error) {
	result, err := ex.ExecContext(ctx,
		`UPDATE sessions SET status = ?, phase = ?, situation_index = ?, pending_traits = ?, hint_traits = ?, started_at = COALESCE(started_at, ?)
		 WHERE id = ? AND status NOT IN (?, ?) AND situation_index <= ?`,
		sess.Status, nullPhase(sess.Phase), sess.SituationIndex,
		encodeCodes(sess.PendingTraits), encodeCodes(sess.HintTraits), nullTime(sess.StartedAt),
		sess.ID, StatusCompleted, StatusAbandoned, sess.SituationIndex,
	)
	if err != nil {
		return false, fmt.Errorf("updating session: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// UpdateSession persists the session state. A session that turned terminal
// in the meantime yields ErrSessionTerminal.
func (s *Store) UpdateSession(ctx context.Context, sess *Session) error {
	ok, err := updateSession(ctx, s.db, sess)
	if err != nil {
		return err
	}
	if !ok {
		return s.rejectedWrite(ctx, sess.ID)
	}
	return nil
}

// rejectedWrite explains why a guarded write touched no row.
func (s *Store) rejectedWrite(ctx context.Context, id string) error {
	cur, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if cur == nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if cur.Status.Terminal() {
		return terminal(cur)
	}
	return invalidPhase(cur, "stale session write")
}

// AbandonSession marks a non-terminal session abandoned. It reports whether
// the session changed.
func (s *Store) AbandonSession(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, phase = NULL WHERE id = ? AND status NOT IN (?, ?)`,
		StatusAbandoned, id, StatusCompleted, StatusAbandoned,
	)
	if err != nil {
		return false, fmt.Errorf("abandoning session: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// GetSituation returns the situation at orderNum, or nil.
func (s *Store) GetSituation(ctx context.Context, sessionID string, orderNum int) (*Situation, error) {
	var sit Situation
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, order_num, content, context_type, created_at
		 FROM situations WHERE session_id = ? AND order_num = ?`, sessionID, orderNum,
	).Scan(&sit.ID, &sit.SessionID, &sit.OrderNum, &sit.Content, &sit.ContextType, &sit.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting situation: %w", err)
	}
	return &sit, nil
}

// InsertSituation stores a situation unless one already exists for the same
// (session, order_num). The stored row is returned either way, together
// with whether this call created it.
func (s *Store) InsertSituation(ctx context.Context, sit Situation) (*Situation, bool, error) {
	if sit.ID == "" {
		sit.ID = uuid.New().String()
	}
	if sit.CreatedAt.IsZero() {
		sit.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO situations (id, session_id, order_num, content, context_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, order_num) DO NOTHING`,
		sit.ID, sit.SessionID, sit.OrderNum, sit.Content, sit.ContextType, sit.CreatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("inserting situation: %w", err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		return &sit, true, nil
	}

	existing, err := s.GetSituation(ctx, sit.SessionID, sit.OrderNum)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("situation %d of session %s vanished after conflict", sit.OrderNum, sit.SessionID)
	}
	return existing, false, nil
}

// ListSituations returns the session's situations in presentation order.
func (s *Store) ListSituations(ctx context.Context, sessionID string) ([]Situation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, order_num, content, context_type, created_at
		 FROM situations WHERE session_id = ? ORDER BY order_num ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing situations: %w", err)
	}
	defer rows.Close()

	var sits []Situation
	for rows.Next() {
		var sit Situation
		if err := rows.Scan(&sit.ID, &sit.SessionID, &sit.OrderNum, &sit.Content, &sit.ContextType, &sit.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning situation: %w", err)
		}
		sits = append(sits, sit)
	}
	return sits, rows.Err()
}

// SaveAnswer stores an answer with its per-trait scores and, when next is
// non-nil, the session state that accepting it produces. Everything commits
// or nothing does; a session that became terminal rejects the write.
func (s *Store) SaveAnswer(ctx context.Context, a *Answer, next *Session) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	analysisJSON := string(a.Analysis)
	if analysisJSON == "" {
		analysisJSON = "{}"
	}
	var target sql.NullString
	if a.Type == AnswerClarification {
		target = sql.NullString{String: a.TargetTrait, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO answers (id, situation_id, type, text, target_trait, analysis, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SituationID, a.Type, a.Text, target, analysisJSON, a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s answer already recorded for situation %s", ErrSessionInvalidPhase, a.Type, a.SituationID)
		}
		return fmt.Errorf("inserting answer: %w", err)
	}

	for code, score := range a.Scores {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO answer_scores (answer_id, trait_code, score) VALUES (?, ?, ?)`,
			a.ID, code, score,
		); err != nil {
			return fmt.Errorf("inserting score %s: %w", code, err)
		}
	}

	if next != nil {
		ok, err := updateSession(ctx, tx, next)
		if err != nil {
			return err
		}
		if !ok {
			tx.Rollback()
			return s.rejectedWrite(ctx, next.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing answer: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// HasMainAnswer reports whether the situation already has its main answer.
func (s *Store) HasMainAnswer(ctx context.Context, situationID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM answers WHERE situation_id = ? AND type = ?`,
		situationID, AnswerMain,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("counting main answers: %w", err)
	}
	return n > 0, nil
}

// ListAnswers returns every answer of a session with its scores, ordered by
// situation and creation time.
func (s *Store) ListAnswers(ctx context.Context, sessionID string) ([]Answer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.situation_id, a.type, a.text, a.target_trait, a.analysis, a.created_at
		 FROM answers a JOIN situations st ON st.id = a.situation_id
		 WHERE st.session_id = ?
		 ORDER BY st.order_num ASC, a.created_at ASC, a.rowid ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing answers: %w", err)
	}
	defer rows.Close()

	var answers []Answer
	byID := map[string]int{}
	for rows.Next() {
		var a Answer
		var target sql.NullString
		var analysisJSON string
		if err := rows.Scan(&a.ID, &a.SituationID, &a.Type, &a.Text, &target, &analysisJSON, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning answer: %w", err)
		}
		a.TargetTrait = target.String
		a.Analysis = json.RawMessage(analysisJSON)
		a.Scores = map[string]float64{}
		byID[a.ID] = len(answers)
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	scoreRows, err := s.db.QueryContext(ctx,
		`SELECT sc.answer_id, sc.trait_code, sc.score
		 FROM answer_scores sc
		 JOIN answers a ON a.id = sc.answer_id
		 JOIN situations st ON st.id = a.situation_id
		 WHERE st.session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing scores: %w", err)
	}
	defer scoreRows.Close()

	for scoreRows.Next() {
		var answerID, code string
		var score float64
		if err := scoreRows.Scan(&answerID, &code, &score); err != nil {
			return nil, fmt.Errorf("scanning score: %w", err)
		}
		if i, ok := byID[answerID]; ok {
			answers[i].Scores[code] = score
		}
	}
	return answers, scoreRows.Err()
}

// CompleteWithResults stores the finalized results and marks the session
// completed in one transaction. Results are written before the status flip;
// a session that is already terminal rolls everything back.
func (s *Store) CompleteWithResults(ctx context.Context, sessionID string, results []SessionResult, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range results {
		r := &results[i]
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		r.SessionID = sessionID
		r.CreatedAt = now
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_results (id, session_id, trait_code, final_score, strength, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, r.SessionID, r.TraitCode, r.FinalScore, r.Strength, r.CreatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: results already recorded for session %s", ErrSessionTerminal, sessionID)
			}
			return fmt.Errorf("inserting result %s: %w", r.TraitCode, err)
		}
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE sessions SET status = ?, phase = NULL, pending_traits = '[]', completed_at = ?
		 WHERE id = ? AND status NOT IN (?, ?)`,
		StatusCompleted, now, sessionID, StatusCompleted, StatusAbandoned,
	)
	if err != nil {
		return fmt.Errorf("completing session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		tx.Rollback()
		return s.rejectedWrite(ctx, sessionID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing results: %w", err)
	}
	return nil
}

// GetResults returns the finalized results of a session.
func (s *Store) GetResults(ctx context.Context, sessionID string) ([]SessionResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, trait_code, final_score, strength, created_at
		 FROM session_results WHERE session_id = ? ORDER BY final_score DESC, trait_code ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	defer rows.Close()

	var results []SessionResult
	for rows.Next() {
		var r SessionResult
		if err := rows.Scan(&r.ID, &r.SessionID, &r.TraitCode, &r.FinalScore, &r.Strength, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
