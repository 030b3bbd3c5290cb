package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"servipago/internal/domain/entities"
	"servipago/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	defaultPaymentsTableName      = "payments"
	defaultBookingClaimsTableName = "booking_claims"
	paymentsBookingIDIndex        = "booking_id-index"
	paymentsProviderTxIndex       = "provider_tx-index"
	paymentsStatusUpdatedAtIndex  = "status-updated_at-index"
)

type paymentItem struct {
	ID             string `dynamodbav:"id"`
	BookingID      string `dynamodbav:"booking_id"`
	ClientID       string `dynamodbav:"client_id"`
	ProfessionalID string `dynamodbav:"professional_id"`
	Amount         int64  `dynamodbav:"amount"`
	PlatformFee    int64  `dynamodbav:"platform_fee"`
	TaxAmount      int64  `dynamodbav:"tax_amount"`
	ProviderFee    int64  `dynamodbav:"provider_fee"`
	Total          int64  `dynamodbav:"total"`
	Payout         int64  `dynamodbav:"payout"`
	Currency       string `dynamodbav:"currency"`
	Method         string `dynamodbav:"method"`
	Status         string `dynamodbav:"status"`
	Provider       string `dynamodbav:"provider"`
	ProviderTxID   string `dynamodbav:"provider_tx_id,omitempty"`
	ProviderTx     string `dynamodbav:"provider_tx,omitempty"`
	ProviderRaw    string `dynamodbav:"provider_raw,omitempty"`
	FailureReason  string `dynamodbav:"failure_reason,omitempty"`

	RefundStatus      string `dynamodbav:"refund_status,omitempty"`
	RefundAmount      int64  `dynamodbav:"refund_amount,omitempty"`
	RefundReason      string `dynamodbav:"refund_reason,omitempty"`
	RefundProviderID  string `dynamodbav:"refund_provider_id,omitempty"`
	RefundCompletedAt string `dynamodbav:"refund_completed_at,omitempty"`

	CreatedAt   string `dynamodbav:"created_at"`
	UpdatedAt   string `dynamodbav:"updated_at"`
	CompletedAt string `dynamodbav:"completed_at,omitempty"`
}

type bookingClaimItem struct {
	BookingID string `dynamodbav:"booking_id"`
	PaymentID string `dynamodbav:"payment_id"`
	ClaimedAt string `dynamodbav:"claimed_at"`
}

// PaymentDynamoRepository persists Payment entities in DynamoDB.
//
// Table requirements (payments):
//   - PK: id (string)
//   - GSI: booking_id-index (PK: booking_id)
//   - GSI: provider_tx-index (PK: provider_tx, sparse)
//   - GSI: status-updated_at-index (PK: status, SK: updated_at)
//
// Table requirements (booking_claims):
//   - PK: booking_id (string)
//
// provider_tx holds "{provider}#{provider_tx_id}" so webhook lookups resolve
// with a single query regardless of provider id formats.
//
// Every status transition carries a condition expression on the current
// status, so a terminal row can never be rewritten. A failed condition
// returns a zero Payment and a nil error; callers reload and decide.

type PaymentDynamoRepository struct {
	ddb         *dynamodb.Client
	tableName   string
	claimsTable string
}

var _ interfaces.IPaymentRepository = (*PaymentDynamoRepository)(nil)

func NewPaymentDynamoRepository(ddb *dynamodb.Client) *PaymentDynamoRepository {
	return &PaymentDynamoRepository{
		ddb:         ddb,
		tableName:   getenvDefault("PAYMENTS_TABLE", defaultPaymentsTableName),
		claimsTable: getenvDefault("BOOKING_CLAIMS_TABLE", defaultBookingClaimsTableName),
	}
}

func (r *PaymentDynamoRepository) Create(ctx context.Context, p entities.Payment) (entities.Payment, error) {
	it := toPaymentItem(p)
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return entities.Payment{}, err
	}

	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": "id",
		},
	})
	if err != nil {
		return entities.Payment{}, err
	}
	return p, nil
}

func (r *PaymentDynamoRepository) GetByID(ctx context.Context, id string) (entities.Payment, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.Payment{}, err
	}
	if len(out.Item) == 0 {
		return entities.Payment{}, nil
	}

	var it paymentItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return entities.Payment{}, err
	}
	return fromPaymentItem(it), nil
}

func (r *PaymentDynamoRepository) GetByProviderTx(ctx context.Context, provider, providerTxID string) (entities.Payment, error) {
	out, err := r.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(paymentsProviderTxIndex),
		KeyConditionExpression: aws.String("provider_tx = :ptx"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ptx": &types.AttributeValueMemberS{Value: providerTxKey(provider, providerTxID)},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return entities.Payment{}, err
	}
	if len(out.Items) == 0 {
		return entities.Payment{}, nil
	}

	var it paymentItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &it); err != nil {
		return entities.Payment{}, err
	}
	return fromPaymentItem(it), nil
}

func (r *PaymentDynamoRepository) ListByBookingID(ctx context.Context, bookingID string) ([]entities.Payment, error) {
	out, err := r.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(paymentsBookingIDIndex),
		KeyConditionExpression: aws.String("booking_id = :bid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":bid": &types.AttributeValueMemberS{Value: bookingID},
		},
	})
	if err != nil {
		return nil, err
	}

	items := make([]entities.Payment, 0, len(out.Items))
	for _, raw := range out.Items {
		var it paymentItem
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, err
		}
		items = append(items, fromPaymentItem(it))
	}
	return items, nil
}

func (r *PaymentDynamoRepository) MarkProcessing(ctx context.Context, id string) (entities.Payment, error) {
	return r.update(ctx, id, func(now string) (string, string, map[string]types.AttributeValue, map[string]string) {
		expr := "SET #status = :processing, #updated_at = :updated_at"
		cond := "#status = :pending"
		vals := map[string]types.AttributeValue{
			":processing": &types.AttributeValueMemberS{Value: string(entities.PaymentStatusProcessing)},
			":pending":    &types.AttributeValueMemberS{Value: string(entities.PaymentStatusPending)},
			":updated_at": &types.AttributeValueMemberS{Value: now},
		}
		names := map[string]string{
			"#status":     "status",
			"#updated_at": "updated_at",
		}
		return expr, cond, vals, names
	})
}

func (r *PaymentDynamoRepository) AttachProviderTx(ctx context.Context, id, provider, providerTxID string, raw json.RawMessage) (entities.Payment, error) {
	return r.update(ctx, id, func(now string) (string, string, map[string]types.AttributeValue, map[string]string) {
		expr := "SET #provider_tx_id = :tx, #provider_tx = :ptx, #updated_at = :updated_at"
		cond := "#status = :processing"
		vals := map[string]types.AttributeValue{
			":tx":         &types.AttributeValueMemberS{Value: providerTxID},
			":ptx":        &types.AttributeValueMemberS{Value: providerTxKey(provider, providerTxID)},
			":processing": &types.AttributeValueMemberS{Value: string(entities.PaymentStatusProcessing)},
			":updated_at": &types.AttributeValueMemberS{Value: now},
		}
		names := map[string]string{
			"#provider_tx_id": "provider_tx_id",
			"#provider_tx":    "provider_tx",
			"#status":         "status",
			"#updated_at":     "updated_at",
		}
		if len(raw) > 0 {
			expr += ", #provider_raw = :raw"
			vals[":raw"] = &types.AttributeValueMemberS{Value: string(raw)}
			names["#provider_raw"] = "provider_raw"
		}
		return expr, cond, vals, names
	})
}

func (r *PaymentDynamoRepository) MarkCompleted(ctx context.Context, id, provider, providerTxID string, raw json.RawMessage) (entities.Payment, error) {
	return r.update(ctx, id, func(now string) (string, string, map[string]types.AttributeValue, map[string]string) {
		expr := "SET #status = :completed, #completed_at = :now, #updated_at = :now"
		cond := "(#status = :pending OR #status = :processing)"
		vals := map[string]types.AttributeValue{
			":completed":  &types.AttributeValueMemberS{Value: string(entities.PaymentStatusCompleted)},
			":pending":    &types.AttributeValueMemberS{Value: string(entities.PaymentStatusPending)},
			":processing": &types.AttributeValueMemberS{Value: string(entities.PaymentStatusProcessing)},
			":now":        &types.AttributeValueMemberS{Value: now},
		}
		names := map[string]string{
			"#status":       "status",
			"#completed_at": "completed_at",
			"#updated_at":   "updated_at",
		}
		if providerTxID != "" {
			expr += ", #provider_tx_id = :tx, #provider_tx = :ptx"
			vals[":tx"] = &types.AttributeValueMemberS{Value: providerTxID}
			vals[":ptx"] = &types.AttributeValueMemberS{Value: providerTxKey(provider, providerTxID)}
			names["#provider_tx_id"] = "provider_tx_id"
			names["#provider_tx"] = "provider_tx"
		}
		if len(raw) > 0 {
			expr += ", #provider_raw = :raw"
			vals[":raw"] = &types.AttributeValueMemberS{Value: string(raw)}
			names["#provider_raw"] = "provider_raw"
		}
		return expr, cond, vals, names
	})
}

func (r *PaymentDynamoRepository) MarkFailed(ctx context.Context, id, reason string) (entities.Payment, error) {
	return r.update(ctx, id, func(now string) (string, string, map[string]types.AttributeValue, map[string]string) {
		expr := "SET #status = :failed, #failure_reason = :reason, #updated_at = :updated_at"
		cond := "(#status = :pending OR #status = :processing)"
		vals := map[string]types.AttributeValue{
			":failed":     &types.AttributeValueMemberS{Value: string(entities.PaymentStatusFailed)},
			":pending":    &types.AttributeValueMemberS{Value: string(entities.PaymentStatusPending)},
			":processing": &types.AttributeValueMemberS{Value: string(entities.PaymentStatusProcessing)},
			":reason":     &types.AttributeValueMemberS{Value: reason},
			":updated_at": &types.AttributeValueMemberS{Value: now},
		}
		names := map[string]string{
			"#status":         "status",
			"#failure_reason": "failure_reason",
			"#updated_at":     "updated_at",
		}
		return expr, cond, vals, names
	})
}

func (r *PaymentDynamoRepository) UpdateRefund(ctx context.Context, id string, refund entities.Refund) (entities.Payment, error) {
	return r.update(ctx, id, func(now string) (string, string, map[string]types.AttributeValue, map[string]string) {
		expr := "SET #refund_status = :rstatus, #refund_amount = :ramount, #refund_reason = :rreason, #updated_at = :updated_at"
		cond := "#status = :completed"
		vals := map[string]types.AttributeValue{
			":rstatus":    &types.AttributeValueMemberS{Value: string(refund.Status)},
			":ramount":    &types.AttributeValueMemberN{Value: int64ToString(refund.Amount)},
			":rreason":    &types.AttributeValueMemberS{Value: refund.Reason},
			":completed":  &types.AttributeValueMemberS{Value: string(entities.PaymentStatusCompleted)},
			":updated_at": &types.AttributeValueMemberS{Value: now},
		}
		names := map[string]string{
			"#refund_status": "refund_status",
			"#refund_amount": "refund_amount",
			"#refund_reason": "refund_reason",
			"#status":        "status",
			"#updated_at":    "updated_at",
		}
		if refund.ProviderRefundID != "" {
			expr += ", #refund_provider_id = :rpid"
			vals[":rpid"] = &types.AttributeValueMemberS{Value: refund.ProviderRefundID}
			names["#refund_provider_id"] = "refund_provider_id"
		}
		if !refund.CompletedAt.IsZero() {
			expr += ", #refund_completed_at = :rdone"
			vals[":rdone"] = &types.AttributeValueMemberS{Value: refund.CompletedAt.UTC().Format(time.RFC3339Nano)}
			names["#refund_completed_at"] = "refund_completed_at"
		}
		return expr, cond, vals, names
	})
}

// ListStuck returns payments still pending or processing whose last update is
// older than the cutoff. Fed to the sweeper; results are capped per status.
func (r *PaymentDynamoRepository) ListStuck(ctx context.Context, olderThan time.Time, limit int32) ([]entities.Payment, error) {
	cutoff := olderThan.UTC().Format(time.RFC3339Nano)
	var stuck []entities.Payment
	for _, status := range []entities.PaymentStatus{entities.PaymentStatusPending, entities.PaymentStatusProcessing} {
		out, err := r.ddb.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String(paymentsStatusUpdatedAtIndex),
			KeyConditionExpression: aws.String("#status = :status AND #updated_at < :cutoff"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":status": &types.AttributeValueMemberS{Value: string(status)},
				":cutoff": &types.AttributeValueMemberS{Value: cutoff},
			},
			ExpressionAttributeNames: map[string]string{
				"#status":     "status",
				"#updated_at": "updated_at",
			},
			Limit: aws.Int32(limit),
		})
		if err != nil {
			return nil, err
		}
		for _, raw := range out.Items {
			var it paymentItem
			if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
				return nil, err
			}
			stuck = append(stuck, fromPaymentItem(it))
		}
	}
	return stuck, nil
}

// ClaimBooking reserves the booking for one payment attempt. The claim row
// outlives completion so a second payment can never be charged for the same
// booking. Returns false when another payment already holds the claim.
func (r *PaymentDynamoRepository) ClaimBooking(ctx context.Context, bookingID, paymentID string) (bool, error) {
	it := bookingClaimItem{
		BookingID: bookingID,
		PaymentID: paymentID,
		ClaimedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return false, err
	}

	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.claimsTable),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#booking_id)"),
		ExpressionAttributeNames: map[string]string{
			"#booking_id": "booking_id",
		},
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ReleaseBooking frees the claim held by paymentID after a failed attempt.
// A claim owned by a different payment is left untouched.
func (r *PaymentDynamoRepository) ReleaseBooking(ctx context.Context, bookingID, paymentID string) error {
	_, err := r.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.claimsTable),
		Key: map[string]types.AttributeValue{
			"booking_id": &types.AttributeValueMemberS{Value: bookingID},
		},
		ConditionExpression: aws.String("#payment_id = :pid"),
		ExpressionAttributeNames: map[string]string{
			"#payment_id": "payment_id",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pid": &types.AttributeValueMemberS{Value: paymentID},
		},
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return nil
		}
		return err
	}
	return nil
}

func (r *PaymentDynamoRepository) update(
	ctx context.Context,
	id string,
	build func(now string) (updateExpr, conditionExpr string, values map[string]types.AttributeValue, names map[string]string),
) (entities.Payment, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	updateExpr, conditionExpr, values, names := build(now)

	out, err := r.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConditionExpression:       aws.String("attribute_exists(#id) AND " + conditionExpr),
		UpdateExpression:          aws.String(updateExpr),
		ExpressionAttributeValues: values,
		ExpressionAttributeNames:  mergeNames(names, map[string]string{"#id": "id"}),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return entities.Payment{}, nil
		}
		return entities.Payment{}, err
	}
	if len(out.Attributes) == 0 {
		return entities.Payment{}, nil
	}
	var it paymentItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &it); err != nil {
		return entities.Payment{}, err
	}
	return fromPaymentItem(it), nil
}

func providerTxKey(provider, providerTxID string) string {
	return provider + "#" + providerTxID
}

func toPaymentItem(p entities.Payment) paymentItem {
	it := paymentItem{
		ID:             p.ID,
		BookingID:      p.BookingID,
		ClientID:       p.ClientID,
		ProfessionalID: p.ProfessionalID,
		Amount:         p.Amount,
		PlatformFee:    p.PlatformFee,
		TaxAmount:      p.TaxAmount,
		ProviderFee:    p.ProviderFee,
		Total:          p.Total,
		Payout:         p.Payout,
		Currency:       p.Currency,
		Method:         string(p.Method),
		Status:         string(p.Status),
		Provider:       p.Provider,
		ProviderTxID:   p.ProviderTxID,
		ProviderRaw:    string(p.ProviderRaw),
		FailureReason:  p.FailureReason,

		RefundStatus:     string(p.Refund.Status),
		RefundAmount:     p.Refund.Amount,
		RefundReason:     p.Refund.Reason,
		RefundProviderID: p.Refund.ProviderRefundID,

		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if p.ProviderTxID != "" {
		it.ProviderTx = providerTxKey(p.Provider, p.ProviderTxID)
	}
	if !p.Refund.CompletedAt.IsZero() {
		it.RefundCompletedAt = p.Refund.CompletedAt.UTC().Format(time.RFC3339Nano)
	}
	if !p.CompletedAt.IsZero() {
		it.CompletedAt = p.CompletedAt.UTC().Format(time.RFC3339Nano)
	}
	return it
}

func fromPaymentItem(it paymentItem) entities.Payment {
	createdAt, _ := time.Parse(time.RFC3339Nano, it.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339Nano, it.UpdatedAt)
	p := entities.Payment{
		ID:             it.ID,
		BookingID:      it.BookingID,
		ClientID:       it.ClientID,
		ProfessionalID: it.ProfessionalID,
		Amount:         it.Amount,
		PlatformFee:    it.PlatformFee,
		TaxAmount:      it.TaxAmount,
		ProviderFee:    it.ProviderFee,
		Total:          it.Total,
		Payout:         it.Payout,
		Currency:       it.Currency,
		Method:         entities.PaymentMethod(it.Method),
		Status:         entities.PaymentStatus(it.Status),
		Provider:       it.Provider,
		ProviderTxID:   it.ProviderTxID,
		FailureReason:  it.FailureReason,
		Refund: entities.Refund{
			Status:           entities.RefundStatus(it.RefundStatus),
			Amount:           it.RefundAmount,
			Reason:           it.RefundReason,
			ProviderRefundID: it.RefundProviderID,
		},
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	if it.ProviderRaw != "" {
		p.ProviderRaw = json.RawMessage(it.ProviderRaw)
	}
	if it.RefundStatus == "" {
		p.Refund.Status = entities.RefundStatusNone
	}
	if it.RefundCompletedAt != "" {
		p.Refund.CompletedAt, _ = time.Parse(time.RFC3339Nano, it.RefundCompletedAt)
	}
	if it.CompletedAt != "" {
		p.CompletedAt, _ = time.Parse(time.RFC3339Nano, it.CompletedAt)
	}
	return p
}
