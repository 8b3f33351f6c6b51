// Package mongostore - store đối soát trên MongoDB.
// ApplyMerge chạy trong session transaction; khi server không hỗ trợ transaction (standalone)
// hoặc MONGODB_USE_TRANSACTIONS=false thì chạy chuỗi bước có bước bù (compensation).
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"data_hub/internal/api/reconcile/models"
	"data_hub/internal/common"
	"data_hub/internal/global"
	"data_hub/internal/logger"
)

// Store store MongoDB
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	names  global.MongoDB_Reconcile_CollectionName
	useTx  atomic.Bool
	now    func() time.Time
}

// New tạo store trên database dbName
func New(client *mongo.Client, dbName string, names global.MongoDB_Reconcile_CollectionName, useTransactions bool) *Store {
	s := &Store{
		client: client,
		db:     client.Database(dbName),
		names:  names,
		now:    time.Now,
	}
	s.useTx.Store(useTransactions)
	return s
}

// Database database đang dùng (tạo index)
func (s *Store) Database() *mongo.Database { return s.db }

// Ping kiểm tra kết nối (health check)
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close ngắt kết nối client
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) col(name string) *mongo.Collection { return s.db.Collection(name) }

// idFilter khớp _id dạng string hoặc ObjectID (dữ liệu cũ dùng ObjectID)
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

// empty field chưa có hoặc rỗng
func empty() bson.M {
	return bson.M{"$in": bson.A{nil, ""}}
}

func findAll[T any](ctx context.Context, col *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cur, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, common.ConvertMongoError(err)
	}
	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, common.ConvertMongoError(err)
	}
	return out, nil
}

// setIfEmpty ghi field khi đang trống; false nếu đã có giá trị, ErrNotFound nếu không có id
func (s *Store) setIfEmpty(ctx context.Context, col *mongo.Collection, id, field, value string) (bool, error) {
	filter := idFilter(id)
	filter[field] = empty()
	res, err := col.UpdateOne(ctx, filter, bson.M{"$set": bson.M{field: value}})
	if err != nil {
		return false, common.ConvertMongoError(err)
	}
	if res.ModifiedCount > 0 {
		return true, nil
	}
	n, err := col.CountDocuments(ctx, idFilter(id))
	if err != nil {
		return false, common.ConvertMongoError(err)
	}
	if n == 0 {
		return false, common.WithDetails(common.ErrNotFound, id)
	}
	return false, nil
}

// EmployeeStore

func (s *Store) ListActiveEmployees(ctx context.Context) ([]models.Employee, error) {
	filter := bson.M{"status": primitive.Regex{Pattern: `^\s*active\s*$`, Options: "i"}}
	return findAll[models.Employee](ctx, s.col(s.names.Employees), filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (s *Store) UpdateEmployeeAliases(ctx context.Context, employeeCode string, aliases []string) error {
	res, err := s.col(s.names.Employees).UpdateOne(ctx,
		bson.M{"employeeId": employeeCode},
		bson.M{"$set": bson.M{"aliases": aliases}})
	if err != nil {
		return common.ConvertMongoError(err)
	}
	if res.MatchedCount == 0 {
		return common.WithDetails(common.ErrNotFound, employeeCode)
	}
	return nil
}

// MessageStore

func (s *Store) ListUnresolvedMessages(ctx context.Context) ([]models.Message, error) {
	filter := bson.M{
		"fromName":    bson.M{"$nin": bson.A{nil, ""}},
		"responderId": empty(),
	}
	messages, err := findAll[models.Message](ctx, s.col(s.names.Messages), filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}

	ids := make(bson.A, 0, len(messages))
	seen := make(map[string]struct{})
	for _, m := range messages {
		if _, ok := seen[m.ConversationID]; !ok {
			seen[m.ConversationID] = struct{}{}
			ids = append(ids, m.ConversationID)
		}
	}
	participants, err := s.participants(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for i := range messages {
		messages[i].ParticipantID = participants[messages[i].ConversationID]
	}
	return messages, nil
}

// participants conversationId -> participantId
func (s *Store) participants(ctx context.Context, filter bson.M) (map[string]string, error) {
	convs, err := findAll[models.Conversation](ctx, s.col(s.names.Conversations), filter,
		options.Find().SetProjection(bson.M{"_id": 1, "participantId": 1, "customerId": 1}))
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(convs))
	for _, c := range convs {
		out[c.ID] = c.ParticipantID
	}
	return out, nil
}

func (s *Store) ListMessagesForCustomer(ctx context.Context, customerID string) ([]models.Message, error) {
	participants, err := s.participants(ctx, bson.M{"customerId": customerID})
	if err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, nil
	}
	ids := make(bson.A, 0, len(participants))
	for id := range participants {
		ids = append(ids, id)
	}
	messages, err := findAll[models.Message](ctx, s.col(s.names.Messages),
		bson.M{"conversationId": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	for i := range messages {
		messages[i].ParticipantID = participants[messages[i].ConversationID]
	}
	return messages, nil
}

func (s *Store) UpdateMessageResponder(ctx context.Context, messageID, employeeID string) (bool, error) {
	return s.setIfEmpty(ctx, s.col(s.names.Messages), messageID, "responderId", employeeID)
}

// ConversationStore

func (s *Store) ListUnassignedConversations(ctx context.Context) ([]models.Conversation, error) {
	filter := bson.M{
		"assignedAgent":      bson.M{"$nin": bson.A{nil, ""}},
		"assignedEmployeeId": empty(),
	}
	return findAll[models.Conversation](ctx, s.col(s.names.Conversations), filter,
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (s *Store) ListConversationsForCustomer(ctx context.Context, customerID string) ([]models.Conversation, error) {
	return findAll[models.Conversation](ctx, s.col(s.names.Conversations), bson.M{"customerId": customerID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (s *Store) UpdateConversationAssignment(ctx context.Context, conversationID, employeeID string) (bool, error) {
	return s.setIfEmpty(ctx, s.col(s.names.Conversations), conversationID, "assignedEmployeeId", employeeID)
}

// OrderStore

func (s *Store) ListOrdersNeedingAttribution(ctx context.Context) ([]models.Order, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"closedById": empty()},
		bson.M{"conversationId": empty()},
	}}
	return findAll[models.Order](ctx, s.col(s.names.Orders), filter,
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}}))
}

func (s *Store) GetCustomer(ctx context.Context, customerID string) (models.Customer, error) {
	var c models.Customer
	err := s.col(s.names.Customers).FindOne(ctx, idFilter(customerID)).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Customer{}, common.WithDetails(common.ErrNotFound, customerID)
	}
	if err != nil {
		return models.Customer{}, common.ConvertMongoError(err)
	}
	return c, nil
}

// UpdateOrderAttribution mỗi field là một update có điều kiện riêng
func (s *Store) UpdateOrderAttribution(ctx context.Context, orderID, employeeID, conversationID string) (bool, error) {
	col := s.col(s.names.Orders)
	changed := false
	for _, f := range []struct{ field, value string }{
		{"closedById", employeeID},
		{"conversationId", conversationID},
	} {
		if f.value == "" {
			continue
		}
		ok, err := s.setIfEmpty(ctx, col, orderID, f.field, f.value)
		if err != nil {
			return changed, err
		}
		changed = changed || ok
	}
	return changed, nil
}

// ProfileStore

func (s *Store) ListCustomerProfiles(ctx context.Context) ([]models.CustomerProfile, error) {
	return findAll[models.CustomerProfile](ctx, s.col(s.names.CustomerProfiles), bson.M{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (s *Store) PersistProfile(ctx context.Context, profile models.CustomerProfile) error {
	if profile.ID == "" {
		return common.WithDetails(common.ErrRequiredField, "profile id")
	}
	_, err := s.col(s.names.CustomerProfiles).ReplaceOne(ctx, bson.M{"_id": profile.ID}, profile, options.Replace().SetUpsert(true))
	return common.ConvertMongoError(err)
}

func (s *Store) ArchiveProfile(ctx context.Context, profileID, destination string) error {
	return s.applyMerge(ctx, nil, []string{profileID}, destination)
}

// ApplyMerge archive loser và ghi canonical, nguyên tử theo nhóm
func (s *Store) ApplyMerge(ctx context.Context, canonical models.CustomerProfile, loserIDs []string, destination string) error {
	return s.applyMerge(ctx, &canonical, loserIDs, destination)
}

// applyMerge dùng transaction khi có thể, nếu không thì chạy các bước có bù
func (s *Store) applyMerge(ctx context.Context, canonical *models.CustomerProfile, loserIDs []string, destination string) error {
	if s.useTx.Load() {
		err := s.applyInTransaction(ctx, canonical, loserIDs, destination)
		if err == nil || !isTransactionUnsupported(err) {
			return err
		}
		logger.GetAppLogger().WithError(err).Warn("🔀 [MERGE] MongoDB không hỗ trợ transaction, chuyển sang chế độ có bước bù")
		s.useTx.Store(false)
	}
	return s.applyCompensating(ctx, canonical, loserIDs, destination)
}

func (s *Store) applyInTransaction(ctx context.Context, canonical *models.CustomerProfile, loserIDs []string, destination string) error {
	session, err := s.client.StartSession()
	if err != nil {
		return common.WithDetails(common.ErrTransaction, err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		archived := s.now().UTC()
		for _, id := range loserIDs {
			raw, err := s.loadRaw(sc, id)
			if err != nil {
				return nil, err
			}
			if _, err := s.col(s.names.ProfileArchive).InsertOne(sc, archiveDoc(destination, id, raw, archived)); err != nil {
				return nil, err
			}
			if _, err := s.col(s.names.CustomerProfiles).DeleteOne(sc, bson.M{"_id": id}); err != nil {
				return nil, err
			}
		}
		if canonical != nil {
			if _, err := s.col(s.names.CustomerProfiles).ReplaceOne(sc, bson.M{"_id": canonical.ID}, canonical, options.Replace().SetUpsert(true)); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// applyCompensating: đọc toàn bộ trước, sau đó archive → ghi canonical → xoá loser; lỗi ở bước nào
// thì hoàn tác các bước đã xong theo thứ tự ngược lại.
func (s *Store) applyCompensating(ctx context.Context, canonical *models.CustomerProfile, loserIDs []string, destination string) error {
	losers := make(map[string]bson.Raw, len(loserIDs))
	for _, id := range loserIDs {
		raw, err := s.loadRaw(ctx, id)
		if err != nil {
			return err
		}
		losers[id] = raw
	}
	var previous bson.Raw
	if canonical != nil {
		raw, err := s.loadRaw(ctx, canonical.ID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		previous = raw
	}

	profiles := s.col(s.names.CustomerProfiles)
	archive := s.col(s.names.ProfileArchive)
	archived := s.now().UTC()

	var steps []step
	for _, id := range loserIDs {
		id := id
		steps = append(steps, step{
			name: "archive " + id,
			do: func(ctx context.Context) error {
				_, err := archive.InsertOne(ctx, archiveDoc(destination, id, losers[id], archived))
				return err
			},
			undo: func(ctx context.Context) error {
				_, err := archive.DeleteOne(ctx, bson.M{"_id": archiveKey(destination, id)})
				return err
			},
		})
	}
	if canonical != nil {
		steps = append(steps, step{
			name: "persist " + canonical.ID,
			do: func(ctx context.Context) error {
				_, err := profiles.ReplaceOne(ctx, bson.M{"_id": canonical.ID}, canonical, options.Replace().SetUpsert(true))
				return err
			},
			undo: func(ctx context.Context) error {
				if previous == nil {
					_, err := profiles.DeleteOne(ctx, bson.M{"_id": canonical.ID})
					return err
				}
				_, err := profiles.ReplaceOne(ctx, bson.M{"_id": canonical.ID}, previous)
				return err
			},
		})
	}
	for _, id := range loserIDs {
		id := id
		steps = append(steps, step{
			name: "delete " + id,
			do: func(ctx context.Context) error {
				_, err := profiles.DeleteOne(ctx, bson.M{"_id": id})
				return err
			},
			undo: func(ctx context.Context) error {
				_, err := profiles.InsertOne(ctx, losers[id])
				return err
			},
		})
	}
	return runSteps(ctx, steps)
}

// loadRaw đọc nguyên document hồ sơ để archive/khôi phục không mất field
func (s *Store) loadRaw(ctx context.Context, id string) (bson.Raw, error) {
	raw, err := s.col(s.names.CustomerProfiles).FindOne(ctx, bson.M{"_id": id}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("profile %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.ConvertMongoError(err)
	}
	return raw, nil
}

func archiveKey(destination, id string) string {
	return destination + "/" + id
}

func archiveDoc(destination, id string, raw bson.Raw, at time.Time) bson.M {
	return bson.M{
		"_id":        archiveKey(destination, id),
		"batch":      destination,
		"profileId":  id,
		"archivedAt": at,
		"document":   raw,
	}
}

// isTransactionUnsupported server standalone trả về IllegalOperation (20)
func isTransactionUnsupported(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(20) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "Transaction numbers are only allowed")
}

// ArchivedProfileIDs id các hồ sơ trong một batch archive
func (s *Store) ArchivedProfileIDs(ctx context.Context, destination string) ([]string, error) {
	type row struct {
		ProfileID string `bson:"profileId"`
	}
	rows, err := findAll[row](ctx, s.col(s.names.ProfileArchive), bson.M{"batch": destination},
		options.Find().SetSort(bson.D{{Key: "profileId", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ProfileID)
	}
	return out, nil
}
