package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoReader implements Reader on the document database that backs the
// application. Author and commenter references are stored as ObjectIDs and
// resolved to display fields at fetch time.
type MongoReader struct {
	posts         *mongo.Collection
	users         *mongo.Collection
	messages      *mongo.Collection
	conversations *mongo.Collection
	logger        *slog.Logger
}

var _ Reader = (*MongoReader)(nil)

func NewMongoReader(db *mongo.Database, logger *slog.Logger) *MongoReader {
	return &MongoReader{
		posts:         db.Collection("posts"),
		users:         db.Collection("users"),
		messages:      db.Collection("messages"),
		conversations: db.Collection("conversations"),
		logger:        logger.With(slog.String("component", "store_mongo")),
	}
}

// Connect dials the document database and verifies connectivity.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// --- raw document shapes ---

type userDoc struct {
	ID         primitive.ObjectID   `bson:"_id"`
	Username   string               `bson:"username"`
	ProfilePic string               `bson:"profilePic"`
	Followers  []primitive.ObjectID `bson:"followers"`
}

type commentDoc struct {
	ID        primitive.ObjectID   `bson:"_id"`
	UserID    primitive.ObjectID   `bson:"userId"`
	Text      string               `bson:"text"`
	Likes     []primitive.ObjectID `bson:"likes"`
	CreatedAt time.Time            `bson:"createdAt"`
}

type postDoc struct {
	ID        primitive.ObjectID   `bson:"_id"`
	PostedBy  primitive.ObjectID   `bson:"postedBy"`
	Text      string               `bson:"text"`
	Image     string               `bson:"img"`
	Likes     []primitive.ObjectID `bson:"likes"`
	Banned    bool                 `bson:"isBanned"`
	Comments  []commentDoc         `bson:"comments"`
	CreatedAt time.Time            `bson:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt"`
}

type messageDoc struct {
	ID             primitive.ObjectID `bson:"_id"`
	ConversationID primitive.ObjectID `bson:"conversationId"`
	Sender         primitive.ObjectID `bson:"sender"`
	Recipient      primitive.ObjectID `bson:"recipientId"`
	Text           string             `bson:"text"`
	Delivered      bool               `bson:"delivered"`
	Seen           bool               `bson:"seen"`
	CreatedAt      time.Time          `bson:"createdAt"`
}

type conversationDoc struct {
	ID           primitive.ObjectID   `bson:"_id"`
	Participants []primitive.ObjectID `bson:"participants"`
}

func hexIDs(ids []primitive.ObjectID) []string {
	return lo.Map(ids, func(id primitive.ObjectID, _ int) string { return id.Hex() })
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: malformed id %q", ErrNotFound, id)
	}
	return oid, nil
}

// --- Reader implementation ---

func (r *MongoReader) Post(ctx context.Context, postID string) (*Post, error) {
	oid, err := parseID(postID)
	if err != nil {
		return nil, err
	}

	var doc postDoc
	if err := r.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch post %s: %w", postID, err)
	}

	// Resolve the author plus every commenter in one query.
	authorIDs := []primitive.ObjectID{doc.PostedBy}
	for _, c := range doc.Comments {
		authorIDs = append(authorIDs, c.UserID)
	}
	refs, err := r.userRefs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	post := &Post{
		ID:        doc.ID.Hex(),
		Author:    refs[doc.PostedBy.Hex()],
		Text:      doc.Text,
		Image:     doc.Image,
		Likes:     hexIDs(doc.Likes),
		Banned:    doc.Banned,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	post.Comments = lo.Map(doc.Comments, func(c commentDoc, _ int) Comment {
		return Comment{
			ID:        c.ID.Hex(),
			Author:    refs[c.UserID.Hex()],
			Text:      c.Text,
			Likes:     hexIDs(c.Likes),
			CreatedAt: c.CreatedAt,
		}
	})
	return post, nil
}

// userRefs resolves display fields for a set of user ids. Users that have
// since been deleted resolve to a ref carrying only their id.
func (r *MongoReader) userRefs(ctx context.Context, ids []primitive.ObjectID) (map[string]UserRef, error) {
	ids = lo.Uniq(ids)
	cursor, err := r.users.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"username": 1, "profilePic": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("resolve user refs: %w", err)
	}
	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("resolve user refs: %w", err)
	}

	refs := make(map[string]UserRef, len(ids))
	for _, id := range ids {
		refs[id.Hex()] = UserRef{ID: id.Hex()}
	}
	for _, d := range docs {
		refs[d.ID.Hex()] = UserRef{ID: d.ID.Hex(), Username: d.Username, ProfilePic: d.ProfilePic}
	}
	return refs, nil
}

func (r *MongoReader) Followers(ctx context.Context, userID string) ([]string, error) {
	oid, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	var doc userDoc
	err = r.users.FindOne(ctx,
		bson.M{"_id": oid},
		options.FindOne().SetProjection(bson.M{"followers": 1}),
	).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch followers of %s: %w", userID, err)
	}
	return hexIDs(doc.Followers), nil
}

func (r *MongoReader) Message(ctx context.Context, messageID string) (*Message, error) {
	oid, err := parseID(messageID)
	if err != nil {
		return nil, err
	}

	var doc messageDoc
	if err := r.messages.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch message %s: %w", messageID, err)
	}
	msg := messageFromDoc(doc)
	return &msg, nil
}

func (r *MongoReader) Conversation(ctx context.Context, conversationID string) (*Conversation, error) {
	oid, err := parseID(conversationID)
	if err != nil {
		return nil, err
	}

	var doc conversationDoc
	if err := r.conversations.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch conversation %s: %w", conversationID, err)
	}
	return &Conversation{
		ID:           doc.ID.Hex(),
		Participants: hexIDs(doc.Participants),
	}, nil
}

func (r *MongoReader) SeenMessages(ctx context.Context, conversationID, viewerID string) ([]Message, error) {
	convoID, err := parseID(conversationID)
	if err != nil {
		return nil, err
	}
	viewer, err := parseID(viewerID)
	if err != nil {
		return nil, err
	}

	cursor, err := r.messages.Find(ctx, bson.M{
		"conversationId": convoID,
		"recipientId":    viewer,
		"seen":           true,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch seen messages in %s: %w", conversationID, err)
	}
	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("fetch seen messages in %s: %w", conversationID, err)
	}
	return lo.Map(docs, func(d messageDoc, _ int) Message { return messageFromDoc(d) }), nil
}

func messageFromDoc(doc messageDoc) Message {
	return Message{
		ID:             doc.ID.Hex(),
		ConversationID: doc.ConversationID.Hex(),
		SenderID:       doc.Sender.Hex(),
		RecipientID:    doc.Recipient.Hex(),
		Text:           doc.Text,
		Delivered:      doc.Delivered,
		Seen:           doc.Seen,
		CreatedAt:      doc.CreatedAt,
	}
}
