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

// EnrollmentRepo provides typed DynamoDB operations for the enrollments table.
// PK: course_id, SK: student_id.
type EnrollmentRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewEnrollmentRepo(client *dynamodb.Client, tableName string) *EnrollmentRepo {
	return &EnrollmentRepo{client: client, tableName: tableName}
}

// Put inserts an enrollment. Returns ErrConflict when the student is already
// enrolled; the key condition makes duplicate enrollment impossible to race.
func (r *EnrollmentRepo) Put(ctx context.Context, e *domain.Enrollment) error {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal enrollment: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(course_id)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("already enrolled: %w", domain.ErrConflict)
	}
	return err
}

// IsEnrolled reports whether the student has an enrollment for the course.
func (r *EnrollmentRepo) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("course_id", courseID, "student_id", studentID),
	})
	if err != nil {
		return false, err
	}
	return out.Item != nil, nil
}

// ListByCourse returns all enrollments for one course.
func (r *EnrollmentRepo) ListByCourse(ctx context.Context, courseID string) ([]domain.Enrollment, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("course_id = :cid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid": &types.AttributeValueMemberS{Value: courseID},
		},
	})
	if err != nil {
		return nil, err
	}
	var enrollments []domain.Enrollment
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &enrollments); err != nil {
		return nil, err
	}
	return enrollments, nil
}

// ListByStudent returns all enrollments for one student via GSI.
func (r *EnrollmentRepo) ListByStudent(ctx context.Context, studentID string) ([]domain.Enrollment, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("student_id-index"),
		KeyConditionExpression: aws.String("student_id = :sid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: studentID},
		},
	})
	if err != nil {
		return nil, err
	}
	var enrollments []domain.Enrollment
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &enrollments); err != nil {
		return nil, err
	}
	return enrollments, nil
}

// CountByCourse returns the number of students enrolled in one course
// without pulling the items back.
func (r *EnrollmentRepo) CountByCourse(ctx context.Context, courseID string) (int, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("course_id = :cid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid": &types.AttributeValueMemberS{Value: courseID},
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, err
	}
	return int(out.Count), nil
}
