package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/garyjia/voucher-sync/internal/application/port"
	"github.com/garyjia/voucher-sync/internal/domain/entity"
)

const (
	vouchersCollection = "vouchers"
	countersCollection = "voucher_counters"
)

// voucherDocument is the stored shape of a voucher
type voucherDocument struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	Owner             string             `bson:"owner"`
	Category          string             `bson:"category"`
	Number            int                `bson:"number"`
	Date              string             `bson:"date"`
	Payee             string             `bson:"payee"`
	AccountHead       string             `bson:"account_head"`
	Towards           string             `bson:"towards"`
	TransactionType   string             `bson:"transaction_type"`
	Amount            string             `bson:"amount"`
	AmountValue       float64            `bson:"amount_value"`
	AmountInWords     string             `bson:"amount_in_words"`
	CheckedBy         string             `bson:"checked_by"`
	ApprovedBy        string             `bson:"approved_by"`
	ReceiverSignature string             `bson:"receiver_signature"`
	DocumentLink      string             `bson:"document_link"`
	DocumentID        string             `bson:"document_id"`
	SpreadsheetID     string             `bson:"spreadsheet_id"`
	FolderID          string             `bson:"folder_id"`
	CreatedAt         time.Time          `bson:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at"`
}

type counterDocument struct {
	ID         string `bson:"_id"`
	LastNumber int    `bson:"last_number"`
}

// VoucherRepository implements port.RecordStore on MongoDB
type VoucherRepository struct {
	vouchers *mongo.Collection
	counters *mongo.Collection
	logger   *zap.Logger
	now      func() time.Time
}

// NewVoucherRepository creates a repository over db
func NewVoucherRepository(db *mongo.Database, logger *zap.Logger) *VoucherRepository {
	return &VoucherRepository{
		vouchers: db.Collection(vouchersCollection),
		counters: db.Collection(countersCollection),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes creates the uniqueness and listing indexes
func (r *VoucherRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.vouchers.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "category", Value: 1}, {Key: "number", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("owner_category_number"),
		},
		{
			Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetName("owner_date"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create voucher indexes: %w", err)
	}
	return nil
}

// Create inserts a voucher and raises its counter to at least its number
func (r *VoucherRepository) Create(ctx context.Context, v *entity.Voucher) error {
	now := r.now()
	doc := toDocument(v)
	doc.CreatedAt = now
	doc.UpdatedAt = now

	result, err := r.vouchers.InsertOne(ctx, doc)
	if err != nil {
		r.logger.Error("Failed to create voucher", zap.String("owner", v.Owner), zap.Int("number", v.Number), zap.Error(err))
		return fmt.Errorf("failed to create voucher: %w", err)
	}

	if err := r.raiseCounter(ctx, v.Owner, v.Category, v.Number); err != nil {
		return err
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		v.ID = oid.Hex()
	}
	v.CreatedAt = now
	v.UpdatedAt = now
	return nil
}

// GetByID retrieves a voucher by ID within the owner's scope
func (r *VoucherRepository) GetByID(ctx context.Context, id, owner string) (*entity.Voucher, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc voucherDocument
	err = r.vouchers.FindOne(ctx, bson.D{{Key: "_id", Value: oid}, {Key: "owner", Value: owner}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get voucher by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}
	return doc.toEntity(), nil
}

// FindByNumber returns the owner's vouchers with number
func (r *VoucherRepository) FindByNumber(ctx context.Context, owner string, number int, category string) ([]*entity.Voucher, error) {
	filter := bson.D{{Key: "owner", Value: owner}, {Key: "number", Value: number}}
	if category != "" {
		filter = append(filter, bson.E{Key: "category", Value: category})
	}
	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}})
	return r.find(ctx, filter, opts)
}

// Update replaces the mutable fields of a voucher
func (r *VoucherRepository) Update(ctx context.Context, v *entity.Voucher) error {
	oid, err := primitive.ObjectIDFromHex(v.ID)
	if err != nil {
		return fmt.Errorf("%w: id %q", port.ErrRecordNotFound, v.ID)
	}

	now := r.now()
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "date", Value: v.Date},
		{Key: "payee", Value: v.Payee},
		{Key: "account_head", Value: v.AccountHead},
		{Key: "towards", Value: v.Towards},
		{Key: "transaction_type", Value: v.TransactionType},
		{Key: "amount", Value: v.Amount},
		{Key: "amount_value", Value: v.AmountValue()},
		{Key: "amount_in_words", Value: v.AmountInWords},
		{Key: "checked_by", Value: v.CheckedBy},
		{Key: "approved_by", Value: v.ApprovedBy},
		{Key: "receiver_signature", Value: v.ReceiverSignature},
		{Key: "document_link", Value: v.DocumentLink},
		{Key: "document_id", Value: v.DocumentID},
		{Key: "updated_at", Value: now},
	}}}

	result, err := r.vouchers.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}, {Key: "owner", Value: v.Owner}}, update)
	if err != nil {
		r.logger.Error("Failed to update voucher", zap.String("id", v.ID), zap.Error(err))
		return fmt.Errorf("failed to update voucher: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: id %s", port.ErrRecordNotFound, v.ID)
	}

	v.UpdatedAt = now
	return nil
}

// Delete removes a voucher. Its counter is untouched.
func (r *VoucherRepository) Delete(ctx context.Context, id, owner string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: id %q", port.ErrRecordNotFound, id)
	}

	result, err := r.vouchers.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}, {Key: "owner", Value: owner}})
	if err != nil {
		r.logger.Error("Failed to delete voucher", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete voucher: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: id %s", port.ErrRecordNotFound, id)
	}
	return nil
}

// List retrieves the owner's vouchers
func (r *VoucherRepository) List(ctx context.Context, owner string, filter port.ListFilter) ([]*entity.Voucher, error) {
	opts := options.Find().SetSort(listSort(filter.Sort))
	return r.find(ctx, listFilter(owner, filter), opts)
}

// FindWorkspace returns the resource ids recorded on the owner's latest
// voucher in category
func (r *VoucherRepository) FindWorkspace(ctx context.Context, owner, category string) (*entity.Workspace, error) {
	filter := bson.D{
		{Key: "owner", Value: owner},
		{Key: "category", Value: category},
		{Key: "spreadsheet_id", Value: bson.D{{Key: "$ne", Value: ""}}},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "number", Value: -1}})

	var doc voucherDocument
	err := r.vouchers.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to find workspace", zap.String("owner", owner), zap.String("category", category), zap.Error(err))
		return nil, fmt.Errorf("failed to find workspace: %w", err)
	}

	return &entity.Workspace{
		Owner:         owner,
		Category:      category,
		SpreadsheetID: doc.SpreadsheetID,
		FolderID:      doc.FolderID,
	}, nil
}

// PeekNumber returns one past the larger of the counter and the highest
// stored number
func (r *VoucherRepository) PeekNumber(ctx context.Context, owner, category string) (int, error) {
	last, err := r.counterValue(ctx, owner, category)
	if err != nil {
		return 0, err
	}
	highest, err := r.highestNumber(ctx, owner, category)
	if err != nil {
		return 0, err
	}
	if highest > last {
		last = highest
	}
	return last + 1, nil
}

// AllocateNumber increments the (owner, category) counter atomically. A
// counter seen for the first time is seeded from the highest stored number.
func (r *VoucherRepository) AllocateNumber(ctx context.Context, owner, category string) (int, error) {
	key := counterKey(owner, category)

	err := r.counters.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		highest, err := r.highestNumber(ctx, owner, category)
		if err != nil {
			return 0, err
		}
		// $max keeps concurrent seeders from lowering each other
		if err := r.raiseCounter(ctx, owner, category, highest); err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, fmt.Errorf("failed to read voucher counter: %w", err)
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter counterDocument
	err = r.counters.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: key}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "last_number", Value: 1}}}},
		opts,
	).Decode(&counter)
	if err != nil {
		r.logger.Error("Failed to allocate voucher number", zap.String("owner", owner), zap.String("category", category), zap.Error(err))
		return 0, fmt.Errorf("failed to allocate voucher number: %w", err)
	}
	return counter.LastNumber, nil
}

func (r *VoucherRepository) raiseCounter(ctx context.Context, owner, category string, number int) error {
	_, err := r.counters.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: counterKey(owner, category)}},
		bson.D{{Key: "$max", Value: bson.D{{Key: "last_number", Value: number}}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to raise voucher counter: %w", err)
	}
	return nil
}

func (r *VoucherRepository) counterValue(ctx context.Context, owner, category string) (int, error) {
	var counter counterDocument
	err := r.counters.FindOne(ctx, bson.D{{Key: "_id", Value: counterKey(owner, category)}}).Decode(&counter)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read voucher counter: %w", err)
	}
	return counter.LastNumber, nil
}

func (r *VoucherRepository) highestNumber(ctx context.Context, owner, category string) (int, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "number", Value: -1}}).
		SetProjection(bson.D{{Key: "number", Value: 1}})

	var doc voucherDocument
	err := r.vouchers.FindOne(ctx, bson.D{{Key: "owner", Value: owner}, {Key: "category", Value: category}}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read highest voucher number: %w", err)
	}
	return doc.Number, nil
}

func (r *VoucherRepository) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]*entity.Voucher, error) {
	cursor, err := r.vouchers.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to query vouchers", zap.Error(err))
		return nil, fmt.Errorf("failed to query vouchers: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []voucherDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode vouchers: %w", err)
	}

	vouchers := make([]*entity.Voucher, 0, len(docs))
	for i := range docs {
		vouchers = append(vouchers, docs[i].toEntity())
	}
	return vouchers, nil
}

func listFilter(owner string, filter port.ListFilter) bson.D {
	f := bson.D{{Key: "owner", Value: owner}}
	if filter.Category != "" {
		f = append(f, bson.E{Key: "category", Value: filter.Category})
	}
	if filter.Date != "" {
		f = append(f, bson.E{Key: "date", Value: filter.Date})
	}
	return f
}

func listSort(sort string) bson.D {
	switch sort {
	case entity.SortByAmountAsc:
		return bson.D{{Key: "amount_value", Value: 1}, {Key: "number", Value: 1}, {Key: "category", Value: 1}}
	case entity.SortByAmountDesc:
		return bson.D{{Key: "amount_value", Value: -1}, {Key: "number", Value: 1}, {Key: "category", Value: 1}}
	default:
		return bson.D{{Key: "number", Value: 1}, {Key: "category", Value: 1}}
	}
}

func counterKey(owner, category string) string {
	return owner + "/" + category
}

func toDocument(v *entity.Voucher) voucherDocument {
	doc := voucherDocument{
		Owner:             v.Owner,
		Category:          v.Category,
		Number:            v.Number,
		Date:              v.Date,
		Payee:             v.Payee,
		AccountHead:       v.AccountHead,
		Towards:           v.Towards,
		TransactionType:   v.TransactionType,
		Amount:            v.Amount,
		AmountValue:       v.AmountValue(),
		AmountInWords:     v.AmountInWords,
		CheckedBy:         v.CheckedBy,
		ApprovedBy:        v.ApprovedBy,
		ReceiverSignature: v.ReceiverSignature,
		DocumentLink:      v.DocumentLink,
		DocumentID:        v.DocumentID,
		SpreadsheetID:     v.SpreadsheetID,
		FolderID:          v.FolderID,
		CreatedAt:         v.CreatedAt,
		UpdatedAt:         v.UpdatedAt,
	}
	if oid, err := primitive.ObjectIDFromHex(v.ID); err == nil {
		doc.ID = oid
	}
	return doc
}

func (d *voucherDocument) toEntity() *entity.Voucher {
	return &entity.Voucher{
		ID:                d.ID.Hex(),
		Owner:             d.Owner,
		Category:          d.Category,
		Number:            d.Number,
		Date:              d.Date,
		Payee:             d.Payee,
		AccountHead:       d.AccountHead,
		Towards:           d.Towards,
		TransactionType:   d.TransactionType,
		Amount:            d.Amount,
		AmountInWords:     d.AmountInWords,
		CheckedBy:         d.CheckedBy,
		ApprovedBy:        d.ApprovedBy,
		ReceiverSignature: d.ReceiverSignature,
		DocumentLink:      d.DocumentLink,
		DocumentID:        d.DocumentID,
		SpreadsheetID:     d.SpreadsheetID,
		FolderID:          d.FolderID,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// Verify interface compliance
var _ port.RecordStore = (*VoucherRepository)(nil)
