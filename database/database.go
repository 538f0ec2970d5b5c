package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"uikitstore/logger"
	"uikitstore/models"
)

const (
	opTimeout   = 5 * time.Second
	listTimeout = 10 * time.Second
)

// DBManager is the MongoDB implementation of Store.
type DBManager struct {
	client             *mongo.Client
	db                 *mongo.Database
	usersCollection    *mongo.Collection
	uisCollection      *mongo.Collection
	paymentsCollection *mongo.Collection
	adminsCollection   *mongo.Collection
}

var _ Store = (*DBManager)(nil)

func NewDBManager(ctx context.Context, mongoURL, dbName string) (*DBManager, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL).SetRegistry(newRegistry()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	err = retry.Do(
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, opTimeout)
			defer cancel()
			return client.Ping(pingCtx, nil)
		},
		retry.Attempts(4),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn(ctx, "MongoDB ping failed, retrying", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(dbName)
	m := &DBManager{
		client:             client,
		db:                 db,
		usersCollection:    db.Collection("users"),
		uisCollection:      db.Collection("uis"),
		paymentsCollection: db.Collection("payments"),
		adminsCollection:   db.Collection("admins"),
	}
	if err := m.ensureIndexes(ctx); err != nil {
		logger.Warn(ctx, "Failed to ensure MongoDB indexes", zap.Error(err))
	}
	return m, nil
}

func (db *DBManager) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return db.client.Disconnect(ctx)
}

func (db *DBManager) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	_, err := db.uisCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "ui_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "verified", Value: 1}}},
	})
	if err != nil {
		return err
	}
	_, err = db.paymentsCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "verified", Value: 1}, {Key: "status", Value: 1}}},
	})
	if err != nil {
		return err
	}
	_, err = db.usersCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "verified", Value: 1}},
	})
	return err
}

// User Functions
func (db *DBManager) GetUser(ctx context.Context, uid string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var user models.User
	err := db.usersCollection.FindOne(ctx, bson.M{"_id": uid}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (db *DBManager) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	userData := bson.M{
		"_id":               user.UID,
		"name":              user.Name,
		"email":             user.Email,
		"telegram_username": user.TelegramUsername,
		"verified":          user.Verified,
		"bookmarks":         nonNil(user.Bookmarks),
		"cart":              nonNil(user.Cart),
		"purchases":         nonNil(user.Purchases),
		"created_at":        user.CreatedAt,
	}

	_, err := db.usersCollection.UpdateOne(
		ctx,
		bson.M{"_id": user.UID},
		bson.M{"$setOnInsert": userData},
		options.Update().SetUpsert(true),
	)
	return err
}

func (db *DBManager) SetTelegramUsername(ctx context.Context, uid, username string) error {
	return db.updateUser(ctx, uid, bson.M{"$set": bson.M{"telegram_username": username}})
}

func (db *DBManager) AddToUserSet(ctx context.Context, uid string, field models.UserSetField, ids ...string) error {
	if !field.Valid() {
		return ErrInvalidField
	}
	return db.updateUser(ctx, uid, bson.M{"$addToSet": bson.M{string(field): bson.M{"$each": nonNil(ids)}}})
}

func (db *DBManager) RemoveFromUserSet(ctx context.Context, uid string, field models.UserSetField, id string) error {
	if !field.Valid() {
		return ErrInvalidField
	}
	return db.updateUser(ctx, uid, bson.M{"$pull": bson.M{string(field): id}})
}

func (db *DBManager) ClearUserSet(ctx context.Context, uid string, field models.UserSetField) error {
	if !field.Valid() {
		return ErrInvalidField
	}
	return db.updateUser(ctx, uid, bson.M{"$set": bson.M{string(field): []string{}}})
}

func (db *DBManager) ListUnverifiedUsers(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	cursor, err := db.usersCollection.Find(ctx, bson.M{"verified": false, "rejected": bson.M{"$ne": true}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (db *DBManager) SetUserVerified(ctx context.Context, uid string) error {
	return db.updateUser(ctx, uid, bson.M{"$set": bson.M{"verified": true}})
}

func (db *DBManager) RejectUser(ctx context.Context, uid string) error {
	return db.updateUser(ctx, uid, bson.M{"$set": bson.M{"verified": false, "rejected": true}})
}

func (db *DBManager) updateUser(ctx context.Context, uid string, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := db.usersCollection.UpdateOne(ctx, bson.M{"_id": uid}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Admin Functions
func (db *DBManager) IsAdmin(ctx context.Context, uid string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	n, err := db.adminsCollection.CountDocuments(ctx, bson.M{"_id": uid}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UI Functions
func (db *DBManager) ListUIs(ctx context.Context) ([]models.UI, error) {
	return db.findUIs(ctx, bson.M{})
}

func (db *DBManager) ListUnverifiedUIs(ctx context.Context) ([]models.UI, error) {
	return db.findUIs(ctx, bson.M{"verified": false})
}

func (db *DBManager) findUIs(ctx context.Context, filter bson.M) ([]models.UI, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	cursor, err := db.uisCollection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var uis []models.UI
	if err = cursor.All(ctx, &uis); err != nil {
		return nil, err
	}
	return uis, nil
}

func (db *DBManager) UIIDExists(ctx context.Context, uiID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	n, err := db.uisCollection.CountDocuments(ctx, bson.M{"ui_id": uiID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *DBManager) CreateUI(ctx context.Context, ui *models.UI) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	ui.ID = primitive.NewObjectID().Hex()
	ui.CreatedAt = time.Now().UTC()
	if _, err := db.uisCollection.InsertOne(ctx, ui); err != nil {
		ui.ID = ""
		return err
	}
	return nil
}

func (db *DBManager) SetUIVerified(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := db.uisCollection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"verified": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DBManager) DeleteUI(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := db.uisCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Payment Functions
func (db *DBManager) CreatePayment(ctx context.Context, p *models.Payment) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	id := primitive.NewObjectID().Hex()
	paymentData := bson.M{
		"user_id":     p.UserID,
		"ui_ids":      nonNil(p.UIIDs),
		"ui_title":    p.UITitle,
		"ui_price":    p.UIPrice,
		"method":      p.Method,
		"status":      p.Status,
		"receipt_url": p.ReceiptURL,
		"verified":    p.Verified,
	}

	// $currentDate stamps the payment with the server clock.
	_, err := db.paymentsCollection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$setOnInsert": paymentData,
			"$currentDate": bson.M{"timestamp": bson.M{"$type": "date"}},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return err
	}

	var stamped struct {
		Timestamp time.Time `bson:"timestamp"`
	}
	err = db.paymentsCollection.FindOne(
		ctx,
		bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"timestamp": 1}),
	).Decode(&stamped)
	if err != nil {
		return fmt.Errorf("read back payment timestamp: %w", err)
	}

	p.ID = id
	p.Timestamp = stamped.Timestamp
	return nil
}

func (db *DBManager) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var p models.Payment
	err := db.paymentsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (db *DBManager) ListPaymentsByUser(ctx context.Context, uid string) ([]models.Payment, error) {
	return db.findPayments(ctx, bson.M{"user_id": uid})
}

func (db *DBManager) ListPendingPayments(ctx context.Context) ([]models.Payment, error) {
	return db.findPayments(ctx, bson.M{"verified": false, "status": models.PaymentPending})
}

func (db *DBManager) findPayments(ctx context.Context, filter bson.M) ([]models.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	cursor, err := db.paymentsCollection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var payments []models.Payment
	if err = cursor.All(ctx, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

func (db *DBManager) SetPaymentMethod(ctx context.Context, id, method string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := db.paymentsCollection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"method": method}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DBManager) SettlePayment(ctx context.Context, id string, status models.PaymentStatus) (*models.Payment, error) {
	if status != models.PaymentVerified && status != models.PaymentRejected {
		return nil, fmt.Errorf("cannot settle payment as %q", status)
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var p models.Payment
	err := db.paymentsCollection.FindOneAndUpdate(
		opCtx,
		bson.M{"_id": id, "status": models.PaymentPending},
		bson.M{"$set": bson.M{"status": status, "verified": status == models.PaymentVerified}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	if _, getErr := db.GetPayment(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrPaymentSettled
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
