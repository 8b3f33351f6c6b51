// Package database - kết nối MongoDB và index cho các collection mà job đối soát truy vấn.
package database

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"data_hub/internal/global"
)

// ReconcileIndexModels index cần cho từng collection (key = tên collection)
func ReconcileIndexModels(names global.MongoDB_Reconcile_CollectionName) map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		// messages: (conversationId, createdAt): lookback theo khách
		names.Messages: {
			{
				Keys:    bson.D{{Key: "conversationId", Value: 1}, {Key: "createdAt", Value: 1}},
				Options: options.Index().SetName("message_conversation_created"),
			},
		},
		// conversations: customerId: lấy hội thoại của khách
		names.Conversations: {
			{
				Keys:    bson.D{{Key: "customerId", Value: 1}},
				Options: options.Index().SetName("conversation_customer"),
			},
		},
		// employees: employeeId unique sparse: sync alias theo mã
		names.Employees: {
			{
				Keys:    bson.D{{Key: "employeeId", Value: 1}},
				Options: options.Index().SetName("employee_code").SetUnique(true).SetSparse(true),
			},
		},
		// customer_profiles_archive: batch: xem lại một lần merge
		names.ProfileArchive: {
			{
				Keys:    bson.D{{Key: "batch", Value: 1}},
				Options: options.Index().SetName("profile_archive_batch"),
			},
		},
	}
}

// CreateReconcileIndexes tạo index; index đã tồn tại được bỏ qua
func CreateReconcileIndexes(ctx context.Context, db *mongo.Database, names global.MongoDB_Reconcile_CollectionName) error {
	for collection, models := range ReconcileIndexModels(names) {
		for _, m := range models {
			if _, err := db.Collection(collection).Indexes().CreateOne(ctx, m); err != nil && !isIndexExistsError(err) {
				return err
			}
		}
	}
	return nil
}

// isIndexExistsError kiểm tra lỗi do index đã tồn tại (bỏ qua)
func isIndexExistsError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "already exists") || strings.Contains(s, "duplicate")
}
