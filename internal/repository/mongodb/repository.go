package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/farebook/internal/domain/models"
	"github.com/mamadbah2/farebook/internal/repository"
)

// MongoDBRepository archives summary snapshots in MongoDB.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

var _ repository.SnapshotArchive = (*MongoDBRepository)(nil)

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: "summary_snapshots",
	}, nil
}

// SaveSummarySnapshot stores one snapshot document.
func (r *MongoDBRepository) SaveSummarySnapshot(ctx context.Context, snapshot models.SummarySnapshot) error {
	doc, err := NewSnapshotDocument(snapshot)
	if err != nil {
		return err
	}

	collection := r.client.Database(r.dbName).Collection(r.collName)
	if _, err := collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert summary snapshot: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// SnapshotDocument is the BSON shape of a snapshot. Money is stored as
// Decimal128 so aggregation pipelines can sum it exactly.
type SnapshotDocument struct {
	From        time.Time         `bson:"from"`
	To          time.Time         `bson:"to"`
	GeneratedAt time.Time         `bson:"generated_at"`
	Users       []SummaryDocument `bson:"users"`
	Totals      SummaryDocument   `bson:"totals"`
}

// SummaryDocument is the BSON shape of one user summary.
type SummaryDocument struct {
	Username      string                          `bson:"username"`
	IncomeCash    primitive.Decimal128            `bson:"income_cash"`
	IncomeBank    primitive.Decimal128            `bson:"income_bank"`
	ExpenseCash   primitive.Decimal128            `bson:"expense_cash"`
	ExpenseBank   primitive.Decimal128            `bson:"expense_bank"`
	NetCash       primitive.Decimal128            `bson:"net_cash"`
	NetBank       primitive.Decimal128            `bson:"net_bank"`
	CashInHand    primitive.Decimal128            `bson:"cash_in_hand"`
	ForwardedCash primitive.Decimal128            `bson:"forwarded_cash"`
	ForwardedBank primitive.Decimal128            `bson:"forwarded_bank"`
	Approved      primitive.Decimal128            `bson:"approved"`
	OffDays       int                             `bson:"off_days"`
	Entries       int                             `bson:"entries"`
	ByStatus      map[string]int                  `bson:"by_status"`
	ByType        map[string]primitive.Decimal128 `bson:"by_type"`
}

// NewSnapshotDocument converts a snapshot into its BSON shape.
func NewSnapshotDocument(snapshot models.SummarySnapshot) (SnapshotDocument, error) {
	doc := SnapshotDocument{
		From:        snapshot.From,
		To:          snapshot.To,
		GeneratedAt: snapshot.GeneratedAt,
		Users:       make([]SummaryDocument, 0, len(snapshot.Users)),
	}

	for _, u := range snapshot.Users {
		sd, err := newSummaryDocument(u)
		if err != nil {
			return SnapshotDocument{}, err
		}
		doc.Users = append(doc.Users, sd)
	}

	totals, err := newSummaryDocument(snapshot.Totals)
	if err != nil {
		return SnapshotDocument{}, err
	}
	doc.Totals = totals
	return doc, nil
}

func newSummaryDocument(s models.UserSummary) (SummaryDocument, error) {
	var firstErr error
	d128 := func(d decimal.Decimal) primitive.Decimal128 {
		v, err := primitive.ParseDecimal128(d.String())
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("convert %s for %s: %w", d, s.Username, err)
		}
		return v
	}

	doc := SummaryDocument{
		Username:      s.Username,
		IncomeCash:    d128(s.IncomeCash),
		IncomeBank:    d128(s.IncomeBank),
		ExpenseCash:   d128(s.ExpenseCash),
		ExpenseBank:   d128(s.ExpenseBank),
		NetCash:       d128(s.NetCash),
		NetBank:       d128(s.NetBank),
		CashInHand:    d128(s.CashInHand),
		ForwardedCash: d128(s.ForwardedCash),
		ForwardedBank: d128(s.ForwardedBank),
		Approved:      d128(s.Approved),
		OffDays:       s.OffDays,
		Entries:       s.Entries,
		ByStatus:      make(map[string]int, len(s.ByStatus)),
		ByType:        make(map[string]primitive.Decimal128, len(s.ByType)),
	}
	for status, n := range s.ByStatus {
		doc.ByStatus[string(status)] = n
	}
	for typ, amount := range s.ByType {
		doc.ByType[string(typ)] = d128(amount)
	}

	return doc, firstErr
}
