package repository

import (
	"context"
	"errors"
	"time"

	"servipago/internal/domain/entities"
	"servipago/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const defaultServiceRequestsTableName = "service_requests"

type serviceRequestItem struct {
	ID             string `dynamodbav:"id"`
	ClientID       string `dynamodbav:"client_id"`
	ProfessionalID string `dynamodbav:"professional_id"`
	Status         string `dynamodbav:"status"`
	PaymentStatus  string `dynamodbav:"payment_status"`
	Amount         int64  `dynamodbav:"amount"`
	Currency       string `dynamodbav:"currency"`
	CreatedAt      string `dynamodbav:"created_at"`
	UpdatedAt      string `dynamodbav:"updated_at"`
}

// ServiceRequestDynamoRepository reads bookings owned by the marketplace and
// writes back only their payment_status.
//
// Table requirements:
//   - PK: id (string)

type ServiceRequestDynamoRepository struct {
	ddb       *dynamodb.Client
	tableName string
}

var _ interfaces.IServiceRequestStore = (*ServiceRequestDynamoRepository)(nil)

func NewServiceRequestDynamoRepository(ddb *dynamodb.Client) *ServiceRequestDynamoRepository {
	return &ServiceRequestDynamoRepository{
		ddb:       ddb,
		tableName: getenvDefault("SERVICE_REQUESTS_TABLE", defaultServiceRequestsTableName),
	}
}

func (r *ServiceRequestDynamoRepository) GetByID(ctx context.Context, id string) (entities.ServiceRequest, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.ServiceRequest{}, err
	}
	if len(out.Item) == 0 {
		return entities.ServiceRequest{}, nil
	}

	var it serviceRequestItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return entities.ServiceRequest{}, err
	}
	return fromServiceRequestItem(it), nil
}

func (r *ServiceRequestDynamoRepository) SetPaymentStatus(ctx context.Context, id string, state entities.BookingPaymentState) (entities.ServiceRequest, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	out, err := r.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConditionExpression: aws.String("attribute_exists(#id)"),
		UpdateExpression:    aws.String("SET #payment_status = :state, #updated_at = :updated_at"),
		ExpressionAttributeNames: map[string]string{
			"#id":             "id",
			"#payment_status": "payment_status",
			"#updated_at":     "updated_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":state":      &types.AttributeValueMemberS{Value: string(state)},
			":updated_at": &types.AttributeValueMemberS{Value: now},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return entities.ServiceRequest{}, errors.New("service request not found: " + id)
		}
		return entities.ServiceRequest{}, err
	}

	var it serviceRequestItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &it); err != nil {
		return entities.ServiceRequest{}, err
	}
	return fromServiceRequestItem(it), nil
}

func fromServiceRequestItem(it serviceRequestItem) entities.ServiceRequest {
	createdAt, _ := time.Parse(time.RFC3339Nano, it.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339Nano, it.UpdatedAt)
	return entities.ServiceRequest{
		ID:             it.ID,
		ClientID:       it.ClientID,
		ProfessionalID: it.ProfessionalID,
		Status:         entities.ServiceRequestStatus(it.Status),
		PaymentStatus:  entities.BookingPaymentState(it.PaymentStatus),
		Amount:         it.Amount,
		Currency:       it.Currency,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}
}
