package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cropwise-backend/internal/models"
)

// Mongo implements Store on top of a MongoDB database. Vote and comment
// transactions run through driver sessions; WithTransaction retries
// transient write conflicts internally before surfacing an error.
type Mongo struct {
	client        *mongo.Client
	users         *mongo.Collection
	posts         *mongo.Collection
	comments      *mongo.Collection
	votes         *mongo.Collection
	fields        *mongo.Collection
	outbreaks     *mongo.Collection
	notifications *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		client:        db.Client(),
		users:         db.Collection("users"),
		posts:         db.Collection("posts"),
		comments:      db.Collection("comments"),
		votes:         db.Collection("votes"),
		fields:        db.Collection("fields"),
		outbreaks:     db.Collection("outbreaks"),
		notifications: db.Collection("notifications"),
	}
}

func (m *Mongo) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(&mongoTx{sc: sc, m: m})
	})
	return err
}

type mongoTx struct {
	sc mongo.SessionContext
	m  *Mongo
}

func (t *mongoTx) Subject(ref SubjectRef) (Subject, error) {
	if ref.IsComment() {
		var comment models.Comment
		err := t.m.comments.FindOne(t.sc, bson.M{"_id": ref.CommentID, "post_id": ref.PostID}).Decode(&comment)
		if err != nil {
			return Subject{}, mapMongoErr(err)
		}
		return Subject{
			Ref:     ref,
			OwnerID: comment.AuthorID,
			Counters: Counters{
				Likes:    comment.LikeCount,
				Dislikes: comment.DislikeCount,
				Votes:    comment.VoteCount,
			},
		}, nil
	}

	var post models.Post
	if err := t.m.posts.FindOne(t.sc, bson.M{"_id": ref.PostID}).Decode(&post); err != nil {
		return Subject{}, mapMongoErr(err)
	}
	return Subject{
		Ref:     ref,
		OwnerID: post.AuthorID,
		Title:   post.Title,
		Counters: Counters{
			Likes:    post.LikeCount,
			Dislikes: post.DislikeCount,
			Votes:    post.VoteCount,
			Comments: post.CommentCount,
		},
	}, nil
}

func (t *mongoTx) SetCounters(ref SubjectRef, c Counters) error {
	set := bson.M{
		"like_count":    c.Likes,
		"dislike_count": c.Dislikes,
		"vote_count":    c.Votes,
	}
	coll := t.m.comments
	filter := bson.M{"_id": ref.CommentID, "post_id": ref.PostID}
	if !ref.IsComment() {
		set["comment_count"] = c.Comments
		coll = t.m.posts
		filter = bson.M{"_id": ref.PostID}
	}

	res, err := coll.UpdateOne(t.sc, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *mongoTx) Vote(ref SubjectRef, userID primitive.ObjectID) (int, error) {
	var vote models.Vote
	err := t.m.votes.FindOne(t.sc, bson.M{"subject_id": ref.SubjectID(), "user_id": userID}).Decode(&vote)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return vote.Value, nil
}

func (t *mongoTx) SetVote(ref SubjectRef, userID primitive.ObjectID, value int) error {
	_, err := t.m.votes.UpdateOne(t.sc,
		bson.M{"subject_id": ref.SubjectID(), "user_id": userID},
		bson.M{
			"$set": bson.M{
				"value":      value,
				"updated_at": time.Now(),
			},
			"$setOnInsert": bson.M{"subject_type": ref.SubjectType()},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (t *mongoTx) InsertComment(comment *models.Comment) error {
	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	_, err := t.m.comments.InsertOne(t.sc, comment)
	return err
}

// --- users ---

func (m *Mongo) InsertUser(ctx context.Context, u *models.User) error {
	res, err := m.users.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (m *Mongo) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := m.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, mapMongoErr(err)
	}
	return &u, nil
}

func (m *Mongo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := m.users.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, mapMongoErr(err)
	}
	return &u, nil
}

func (m *Mongo) SaveUser(ctx context.Context, u *models.User) error {
	res, err := m.users.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// --- posts & comments ---

func (m *Mongo) InsertPost(ctx context.Context, p *models.Post) error {
	res, err := m.posts.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (m *Mongo) GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var p models.Post
	if err := m.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, mapMongoErr(err)
	}
	return &p, nil
}

func (m *Mongo) ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	query := bson.M{}
	if filter.CropType != "" {
		query["crop_type"] = filter.CropType
	}
	if !filter.AuthorID.IsZero() {
		query["author_id"] = filter.AuthorID
	}

	cursor, err := m.posts.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (m *Mongo) SetBestAnswer(ctx context.Context, postID, commentID primitive.ObjectID) error {
	res, err := m.posts.UpdateOne(ctx, bson.M{"_id": postID}, bson.M{"$set": bson.M{"best_answer_id": commentID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) GetComment(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var c models.Comment
	if err := m.comments.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, mapMongoErr(err)
	}
	return &c, nil
}

func (m *Mongo) ListComments(ctx context.Context, postID primitive.ObjectID) ([]models.Comment, error) {
	cursor, err := m.comments.Find(ctx, bson.M{"post_id": postID},
		options.Find().SetSort(bson.D{{Key: "vote_count", Value: -1}, {Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var comments []models.Comment
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (m *Mongo) UserVote(ctx context.Context, ref SubjectRef, userID primitive.ObjectID) (int, error) {
	var vote models.Vote
	err := m.votes.FindOne(ctx, bson.M{"subject_id": ref.SubjectID(), "user_id": userID}).Decode(&vote)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return vote.Value, nil
}

// --- fields ---

func (m *Mongo) InsertField(ctx context.Context, f *models.Field) error {
	res, err := m.fields.InsertOne(ctx, f)
	if err != nil {
		return err
	}
	f.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (m *Mongo) GetField(ctx context.Context, id primitive.ObjectID) (*models.Field, error) {
	var f models.Field
	if err := m.fields.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		return nil, mapMongoErr(err)
	}
	return &f, nil
}

func (m *Mongo) ListFields(ctx context.Context) ([]models.Field, error) {
	cursor, err := m.fields.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var fields []models.Field
	if err := cursor.All(ctx, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func (m *Mongo) FieldsByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Field, error) {
	cursor, err := m.fields.Find(ctx, bson.M{"owner_id": ownerID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var fields []models.Field
	if err := cursor.All(ctx, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func (m *Mongo) SetFieldScan(ctx context.Context, fieldID primitive.ObjectID, scan *models.ScanResult) error {
	res, err := m.fields.UpdateOne(ctx, bson.M{"_id": fieldID}, bson.M{"$set": bson.M{"last_scan": scan}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// --- outbreak alerts ---

func (m *Mongo) InsertAlert(ctx context.Context, a *models.OutbreakAlert) error {
	res, err := m.outbreaks.InsertOne(ctx, a)
	if err != nil {
		return err
	}
	a.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (m *Mongo) GetAlert(ctx context.Context, id primitive.ObjectID) (*models.OutbreakAlert, error) {
	var alert models.OutbreakAlert
	if err := m.outbreaks.FindOne(ctx, bson.M{"_id": id}).Decode(&alert); err != nil {
		return nil, mapMongoErr(err)
	}
	return &alert, nil
}

func (m *Mongo) SetAlertStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	res, err := m.outbreaks.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) ListAlerts(ctx context.Context) ([]models.OutbreakAlert, error) {
	cursor, err := m.outbreaks.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var alerts []models.OutbreakAlert
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// --- notifications ---

func (m *Mongo) InsertNotification(ctx context.Context, n *models.Notification) error {
	res, err := m.notifications.InsertOne(ctx, n)
	if err != nil {
		return err
	}
	n.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (m *Mongo) ListNotifications(ctx context.Context, recipientID primitive.ObjectID, includeRead bool) ([]models.Notification, error) {
	query := bson.M{"recipient_id": recipientID}
	if !includeRead {
		query["is_read"] = false
	}

	cursor, err := m.notifications.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (m *Mongo) CountNotifications(ctx context.Context, recipientID primitive.ObjectID) (models.NotificationCount, error) {
	total, err := m.notifications.CountDocuments(ctx, bson.M{"recipient_id": recipientID})
	if err != nil {
		return models.NotificationCount{}, err
	}
	unread, err := m.notifications.CountDocuments(ctx, bson.M{"recipient_id": recipientID, "is_read": false})
	if err != nil {
		return models.NotificationCount{}, err
	}
	return models.NotificationCount{Total: total, Unread: unread}, nil
}

func (m *Mongo) MarkNotificationRead(ctx context.Context, id, recipientID primitive.ObjectID) error {
	now := time.Now()
	res, err := m.notifications.UpdateOne(ctx,
		bson.M{"_id": id, "recipient_id": recipientID},
		bson.M{"$set": bson.M{"is_read": true, "read_at": now}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) MarkAllNotificationsRead(ctx context.Context, recipientID primitive.ObjectID) error {
	now := time.Now()
	_, err := m.notifications.UpdateMany(ctx,
		bson.M{"recipient_id": recipientID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": now}})
	return err
}

func (m *Mongo) DeleteNotification(ctx context.Context, id, recipientID primitive.ObjectID) error {
	res, err := m.notifications.DeleteOne(ctx, bson.M{"_id": id, "recipient_id": recipientID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func mapMongoErr(err error) error {
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	return err
}
