package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/qr-attendance-api/internal/domain"
)

// CheckinSessionRepo is the authoritative token → session mapping. It spans
// two tables: checkin_sessions (one item per session, all of history) and
// course_active_sessions (one pointer item per course, versioned).
//
// Supersession is a single TransactWriteItems call conditioned on the pointer
// version, so two racing creates for one course cannot both leave an ACTIVE
// session: the loser observes ErrConflict and retries against the new pointer.
type CheckinSessionRepo struct {
	client        *dynamodb.Client
	sessionsTable string
	activeTable   string
}

func NewCheckinSessionRepo(client *dynamodb.Client, sessionsTable, activeTable string) *CheckinSessionRepo {
	return &CheckinSessionRepo{client: client, sessionsTable: sessionsTable, activeTable: activeTable}
}

// GetActive returns the course's ACTIVE-session pointer, or ErrNotFound when
// the course has never had a session.
func (r *CheckinSessionRepo) GetActive(ctx context.Context, courseID string) (*domain.ActiveSession, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.activeTable),
		Key:       strKey("course_id", courseID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("no session for course: %w", domain.ErrNotFound)
	}
	var a domain.ActiveSession
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *CheckinSessionRepo) Get(ctx context.Context, sessionID string) (*domain.CheckinSession, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.sessionsTable),
		Key:       strKey("session_id", sessionID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	var s domain.CheckinSession
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByToken looks a session up by its opaque token via GSI. The session is
// returned regardless of status or expiry; liveness is the caller's call to
// make against its own clock.
func (r *CheckinSessionRepo) GetByToken(ctx context.Context, token string) (*domain.CheckinSession, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.sessionsTable),
		IndexName:              aws.String("token-index"),
		KeyConditionExpression: aws.String("#t = :tok"),
		ExpressionAttributeNames: map[string]string{
			"#t": "token",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tok": &types.AttributeValueMemberS{Value: token},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("token not found: %w", domain.ErrNotFound)
	}
	var s domain.CheckinSession
	if err := attributevalue.UnmarshalMap(out.Items[0], &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSuperseding atomically installs s as the course's ACTIVE session.
//
// prev is the pointer the caller observed (nil when the course has no pointer
// item yet). The transaction writes the session item, advances the pointer
// conditioned on the observed version, and marks the superseded session
// EXPIRED. A concurrent create invalidates the condition and the whole
// transaction returns ErrConflict without writing anything; the caller
// re-reads the pointer and retries.
func (r *CheckinSessionRepo) CreateSuperseding(ctx context.Context, s *domain.CheckinSession, prev *domain.ActiveSession) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	items := []types.TransactWriteItem{
		{Put: &types.Put{
			TableName: aws.String(r.sessionsTable),
			Item:      item,
			// session_id is a fresh ULID; this condition guards against
			// the same transaction being replayed, not against callers.
			ConditionExpression: aws.String("attribute_not_exists(session_id)"),
		}},
	}

	if prev == nil {
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(r.activeTable),
				Item: map[string]types.AttributeValue{
					"course_id":  &types.AttributeValueMemberS{Value: s.CourseID},
					"session_id": &types.AttributeValueMemberS{Value: s.SessionID},
					"version":    &types.AttributeValueMemberN{Value: "1"},
				},
				ConditionExpression: aws.String("attribute_not_exists(course_id)"),
			},
		})
	} else {
		items = append(items, types.TransactWriteItem{
			Update: &types.Update{
				TableName:           aws.String(r.activeTable),
				Key:                 strKey("course_id", s.CourseID),
				UpdateExpression:    aws.String("SET #sid = :sid, #v = #v + :one"),
				ConditionExpression: aws.String("#v = :seen"),
				ExpressionAttributeNames: map[string]string{
					"#sid": fieldSessionID,
					"#v":   fieldVersion,
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":sid":  &types.AttributeValueMemberS{Value: s.SessionID},
					":one":  &types.AttributeValueMemberN{Value: "1"},
					":seen": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", prev.Version)},
				},
			},
		}, types.TransactWriteItem{
			Update: &types.Update{
				TableName:        aws.String(r.sessionsTable),
				Key:              strKey("session_id", prev.SessionID),
				UpdateExpression: aws.String("SET #s = :expired"),
				// Without this guard the update would resurrect a ghost
				// {session_id, status} item for a TTL-purged row.
				ConditionExpression: aws.String("attribute_exists(session_id)"),
				ExpressionAttributeNames: map[string]string{
					"#s": fieldStatus,
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":expired": &types.AttributeValueMemberS{Value: domain.SessionExpired},
				},
			},
		})
	}

	err = r.install(ctx, items)
	if prevAlreadyPurged(err) {
		// TTL garbage collection removed the superseded row before we could
		// mark it EXPIRED. Install without touching it; the version-checked
		// pointer update alone linearizes the supersession.
		err = r.install(ctx, items[:2])
	}
	var txc *types.TransactionCanceledException
	if errors.As(err, &txc) {
		for _, reason := range txc.CancellationReasons {
			if conditionFailed(reason) {
				return fmt.Errorf("session superseded concurrently: %w", domain.ErrConflict)
			}
		}
	}
	return err
}

func (r *CheckinSessionRepo) install(ctx context.Context, items []types.TransactWriteItem) error {
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	return err
}

// prevAlreadyPurged reports a cancellation whose only failed condition is the
// superseded session's existence check, item 2 of the three-item transaction.
// The pointer's version check passing means no concurrent create raced us.
func prevAlreadyPurged(err error) bool {
	var txc *types.TransactionCanceledException
	if !errors.As(err, &txc) || len(txc.CancellationReasons) != 3 {
		return false
	}
	return conditionFailed(txc.CancellationReasons[2]) &&
		!conditionFailed(txc.CancellationReasons[0]) &&
		!conditionFailed(txc.CancellationReasons[1])
}

func conditionFailed(reason types.CancellationReason) bool {
	return reason.Code != nil && *reason.Code == "ConditionalCheckFailed"
}

// ListByCourse returns every session (ACTIVE and EXPIRED) ever held for a
// course, newest first by session_id (ULIDs sort by creation time).
func (r *CheckinSessionRepo) ListByCourse(ctx context.Context, courseID string) ([]domain.CheckinSession, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.sessionsTable),
		IndexName:              aws.String("course_id-index"),
		KeyConditionExpression: aws.String("course_id = :cid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid": &types.AttributeValueMemberS{Value: courseID},
		},
	})
	if err != nil {
		return nil, err
	}
	var sessions []domain.CheckinSession
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}
