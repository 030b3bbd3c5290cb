package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"servipago/internal/domain/entities"
	"servipago/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	defaultInvoicesTableName        = "invoices"
	defaultInvoiceCountersTableName = "invoice_counters"
	invoicesNumberIndex             = "number-index"
)

type invoiceItem struct {
	PaymentID      string `dynamodbav:"payment_id"`
	ID             string `dynamodbav:"id"`
	Number         string `dynamodbav:"number"`
	BookingID      string `dynamodbav:"booking_id"`
	ClientID       string `dynamodbav:"client_id"`
	ProfessionalID string `dynamodbav:"professional_id"`

	Subtotal        int64  `dynamodbav:"subtotal"`
	Discount        int64  `dynamodbav:"discount"`
	Taxable         int64  `dynamodbav:"taxable"`
	IVAAmount       int64  `dynamodbav:"iva_amount"`
	RetentionAmount int64  `dynamodbav:"retention_amount"`
	PlatformFee     int64  `dynamodbav:"platform_fee"`
	Total           int64  `dynamodbav:"total"`
	IVARate         string `dynamodbav:"iva_rate"`
	RetentionRate   string `dynamodbav:"retention_rate"`
	Currency        string `dynamodbav:"currency"`

	Status    string `dynamodbav:"status"`
	IssuedAt  string `dynamodbav:"issued_at"`
	CreatedAt string `dynamodbav:"created_at"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

// InvoiceDynamoRepository persists Invoice entities in DynamoDB.
//
// Table requirements (invoices):
//   - PK: payment_id (string)
//   - GSI: number-index (PK: number)
//
// Table requirements (invoice_counters):
//   - PK: period (string, "YYYYMM")
//
// Using payment_id as PK guarantees one invoice per payment; the counter
// table hands out the per-month sequence behind invoice numbers via an
// atomic ADD. Status transitions are condition-guarded; a failed condition
// returns a zero Invoice and a nil error.

type InvoiceDynamoRepository struct {
	ddb           *dynamodb.Client
	tableName     string
	countersTable string
}

var _ interfaces.IInvoiceRepository = (*InvoiceDynamoRepository)(nil)

func NewInvoiceDynamoRepository(ddb *dynamodb.Client) *InvoiceDynamoRepository {
	return &InvoiceDynamoRepository{
		ddb:           ddb,
		tableName:     getenvDefault("INVOICES_TABLE", defaultInvoicesTableName),
		countersTable: getenvDefault("INVOICE_COUNTERS_TABLE", defaultInvoiceCountersTableName),
	}
}

// Create writes the invoice only when the payment has none yet. The losing
// writer of a race gets a zero Invoice and a nil error and should reload.
func (r *InvoiceDynamoRepository) Create(ctx context.Context, inv entities.Invoice) (entities.Invoice, error) {
	it := toInvoiceItem(inv)
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return entities.Invoice{}, err
	}

	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#payment_id)"),
		ExpressionAttributeNames: map[string]string{
			"#payment_id": "payment_id",
		},
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return entities.Invoice{}, nil
		}
		return entities.Invoice{}, err
	}
	return inv, nil
}

func (r *InvoiceDynamoRepository) GetByPaymentID(ctx context.Context, paymentID string) (entities.Invoice, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"payment_id": &types.AttributeValueMemberS{Value: paymentID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.Invoice{}, err
	}
	if len(out.Item) == 0 {
		return entities.Invoice{}, nil
	}

	var it invoiceItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return entities.Invoice{}, err
	}
	return fromInvoiceItem(it), nil
}

func (r *InvoiceDynamoRepository) GetByNumber(ctx context.Context, number string) (entities.Invoice, error) {
	out, err := r.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(invoicesNumberIndex),
		KeyConditionExpression: aws.String("#number = :number"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":number": &types.AttributeValueMemberS{Value: number},
		},
		ExpressionAttributeNames: map[string]string{
			"#number": "number",
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return entities.Invoice{}, err
	}
	if len(out.Items) == 0 {
		return entities.Invoice{}, nil
	}

	var it invoiceItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &it); err != nil {
		return entities.Invoice{}, err
	}
	return fromInvoiceItem(it), nil
}

func (r *InvoiceDynamoRepository) MarkPaid(ctx context.Context, paymentID string) (entities.Invoice, error) {
	return r.update(ctx, paymentID, func(now string) (string, string, map[string]types.AttributeValue, map[string]string) {
		expr := "SET #status = :paid, #updated_at = :updated_at"
		cond := "#status = :issued"
		vals := map[string]types.AttributeValue{
			":paid":       &types.AttributeValueMemberS{Value: string(entities.InvoiceStatusPaid)},
			":issued":     &types.AttributeValueMemberS{Value: string(entities.InvoiceStatusIssued)},
			":updated_at": &types.AttributeValueMemberS{Value: now},
		}
		names := map[string]string{
			"#status":     "status",
			"#updated_at": "updated_at",
		}
		return expr, cond, vals, names
	})
}

func (r *InvoiceDynamoRepository) MarkRefunded(ctx context.Context, paymentID string) (entities.Invoice, error) {
	return r.update(ctx, paymentID, func(now string) (string, string, map[string]types.AttributeValue, map[string]string) {
		expr := "SET #status = :refunded, #updated_at = :updated_at"
		cond := "#status = :paid"
		vals := map[string]types.AttributeValue{
			":refunded":   &types.AttributeValueMemberS{Value: string(entities.InvoiceStatusRefunded)},
			":paid":       &types.AttributeValueMemberS{Value: string(entities.InvoiceStatusPaid)},
			":updated_at": &types.AttributeValueMemberS{Value: now},
		}
		names := map[string]string{
			"#status":     "status",
			"#updated_at": "updated_at",
		}
		return expr, cond, vals, names
	})
}

func (r *InvoiceDynamoRepository) Cancel(ctx context.Context, paymentID string) (entities.Invoice, error) {
	return r.update(ctx, paymentID, func(now string) (string, string, map[string]types.AttributeValue, map[string]string) {
		expr := "SET #status = :cancelled, #updated_at = :updated_at"
		cond := "(#status = :draft OR #status = :issued)"
		vals := map[string]types.AttributeValue{
			":cancelled":  &types.AttributeValueMemberS{Value: string(entities.InvoiceStatusCancelled)},
			":draft":      &types.AttributeValueMemberS{Value: string(entities.InvoiceStatusDraft)},
			":issued":     &types.AttributeValueMemberS{Value: string(entities.InvoiceStatusIssued)},
			":updated_at": &types.AttributeValueMemberS{Value: now},
		}
		names := map[string]string{
			"#status":     "status",
			"#updated_at": "updated_at",
		}
		return expr, cond, vals, names
	})
}

// NextNumber atomically increments and returns the sequence for a billing
// period. The counter row is created on first use.
func (r *InvoiceDynamoRepository) NextNumber(ctx context.Context, period string) (int64, error) {
	out, err := r.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.countersTable),
		Key: map[string]types.AttributeValue{
			"period": &types.AttributeValueMemberS{Value: period},
		},
		UpdateExpression: aws.String("ADD #seq :one"),
		ExpressionAttributeNames: map[string]string{
			"#seq": "seq",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return 0, err
	}

	seqAttr, ok := out.Attributes["seq"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, errors.New("invoice counter returned no sequence")
	}
	return strconv.ParseInt(seqAttr.Value, 10, 64)
}

func (r *InvoiceDynamoRepository) update(
	ctx context.Context,
	paymentID string,
	build func(now string) (updateExpr, conditionExpr string, values map[string]types.AttributeValue, names map[string]string),
) (entities.Invoice, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	updateExpr, conditionExpr, values, names := build(now)

	out, err := r.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"payment_id": &types.AttributeValueMemberS{Value: paymentID},
		},
		ConditionExpression:       aws.String("attribute_exists(#payment_id) AND " + conditionExpr),
		UpdateExpression:          aws.String(updateExpr),
		ExpressionAttributeValues: values,
		ExpressionAttributeNames:  mergeNames(names, map[string]string{"#payment_id": "payment_id"}),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return entities.Invoice{}, nil
		}
		return entities.Invoice{}, err
	}
	if len(out.Attributes) == 0 {
		return entities.Invoice{}, nil
	}
	var it invoiceItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &it); err != nil {
		return entities.Invoice{}, err
	}
	return fromInvoiceItem(it), nil
}

func toInvoiceItem(inv entities.Invoice) invoiceItem {
	return invoiceItem{
		PaymentID:      inv.PaymentID,
		ID:             inv.ID,
		Number:         inv.Number,
		BookingID:      inv.BookingID,
		ClientID:       inv.ClientID,
		ProfessionalID: inv.ProfessionalID,

		Subtotal:        inv.Subtotal,
		Discount:        inv.Discount,
		Taxable:         inv.Taxable,
		IVAAmount:       inv.IVAAmount,
		RetentionAmount: inv.RetentionAmount,
		PlatformFee:     inv.PlatformFee,
		Total:           inv.Total,
		IVARate:         inv.IVARate,
		RetentionRate:   inv.RetentionRate,
		Currency:        inv.Currency,

		Status:    string(inv.Status),
		IssuedAt:  inv.IssuedAt.UTC().Format(time.RFC3339Nano),
		CreatedAt: inv.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: inv.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func fromInvoiceItem(it invoiceItem) entities.Invoice {
	issuedAt, _ := time.Parse(time.RFC3339Nano, it.IssuedAt)
	createdAt, _ := time.Parse(time.RFC3339Nano, it.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339Nano, it.UpdatedAt)
	return entities.Invoice{
		PaymentID:      it.PaymentID,
		ID:             it.ID,
		Number:         it.Number,
		BookingID:      it.BookingID,
		ClientID:       it.ClientID,
		ProfessionalID: it.ProfessionalID,

		Subtotal:        it.Subtotal,
		Discount:        it.Discount,
		Taxable:         it.Taxable,
		IVAAmount:       it.IVAAmount,
		RetentionAmount: it.RetentionAmount,
		PlatformFee:     it.PlatformFee,
		Total:           it.Total,
		IVARate:         it.IVARate,
		RetentionRate:   it.RetentionRate,
		Currency:        it.Currency,

		Status:    entities.InvoiceStatus(it.Status),
		IssuedAt:  issuedAt,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}
