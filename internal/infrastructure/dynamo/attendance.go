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

// AttendanceRepo is the attendance ledger. PK: session_id, SK: student_id —
// the table key itself is the at-most-one-record-per-(session, student)
// invariant, enforced by DynamoDB on every write.
type AttendanceRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAttendanceRepo(client *dynamodb.Client, tableName string) *AttendanceRepo {
	return &AttendanceRepo{client: client, tableName: tableName}
}

// PutIfAbsent inserts the record unless one already exists for its
// (session, student) key. Returns (true, nil) when this call created the
// record and (false, nil) when a record was already there — a duplicate is an
// expected outcome, not an error. The conditional write is atomic in
// DynamoDB, so concurrent redemptions by the same student resolve to exactly
// one insert with no read-then-write window.
func (r *AttendanceRepo) PutIfAbsent(ctx context.Context, rec *domain.AttendanceRecord) (bool, error) {
	rec.CourseStudent = rec.CourseID + "#" + rec.StudentID
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return false, fmt.Errorf("marshal attendance record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(session_id)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListBySession returns the records for one session.
func (r *AttendanceRepo) ListBySession(ctx context.Context, sessionID string) ([]domain.AttendanceRecord, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("session_id = :sid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: sessionID},
		},
	})
	if err != nil {
		return nil, err
	}
	var records []domain.AttendanceRecord
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListByCourse returns the records for one course between two dates
// (inclusive, YYYY-MM-DD). Empty bounds mean unbounded.
func (r *AttendanceRepo) ListByCourse(ctx context.Context, courseID, fromDate, toDate string) ([]domain.AttendanceRecord, error) {
	input := &dynamodb.QueryInput{
		TableName: aws.String(r.tableName),
		IndexName: aws.String("course_id-date-index"),
	}
	values := map[string]types.AttributeValue{
		":cid": &types.AttributeValueMemberS{Value: courseID},
	}
	names := map[string]string{"#d": "date"}
	switch {
	case fromDate != "" && toDate != "":
		input.KeyConditionExpression = aws.String("course_id = :cid AND #d BETWEEN :from AND :to")
		values[":from"] = &types.AttributeValueMemberS{Value: fromDate}
		values[":to"] = &types.AttributeValueMemberS{Value: toDate}
	case fromDate != "":
		input.KeyConditionExpression = aws.String("course_id = :cid AND #d >= :from")
		values[":from"] = &types.AttributeValueMemberS{Value: fromDate}
	case toDate != "":
		input.KeyConditionExpression = aws.String("course_id = :cid AND #d <= :to")
		values[":to"] = &types.AttributeValueMemberS{Value: toDate}
	default:
		input.KeyConditionExpression = aws.String("course_id = :cid")
	}
	input.ExpressionAttributeValues = values
	input.ExpressionAttributeNames = names

	out, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, err
	}
	var records []domain.AttendanceRecord
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListByCourseStudent returns one student's records for one course, the
// query behind per-student reports and fresh-install reconciliation.
func (r *AttendanceRepo) ListByCourseStudent(ctx context.Context, courseID, studentID string) ([]domain.AttendanceRecord, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("course_student-index"),
		KeyConditionExpression: aws.String("course_student = :cs"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cs": &types.AttributeValueMemberS{Value: courseID + "#" + studentID},
		},
	})
	if err != nil {
		return nil, err
	}
	var records []domain.AttendanceRecord
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// HasAttended reports whether the student holds a record for the session.
func (r *AttendanceRepo) HasAttended(ctx context.Context, sessionID, studentID string) (bool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("session_id", sessionID, "student_id", studentID),
	})
	if err != nil {
		return false, err
	}
	return out.Item != nil, nil
}
