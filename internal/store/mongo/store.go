package mongo

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sol-e-e/realtime-chat/internal/chat"
)

type participantDoc struct {
	Name       string     `bson:"name"`
	Email      string     `bson:"email"`
	LastReadAt *time.Time `bson:"lastReadAt,omitempty"`
}

type lastMessageDoc struct {
	Content   string    `bson:"content"`
	Timestamp time.Time `bson:"timestamp"`
	SenderID  string    `bson:"senderId"`
}

type chatDoc struct {
	ID               string                    `bson:"_id"`
	Participants     []string                  `bson:"participants"`
	ParticipantsData map[string]participantDoc `bson:"participantsData"`
	LastMessage      lastMessageDoc            `bson:"lastMessage"`
	CreatedAt        time.Time                 `bson:"createdAt"`
}

type messageDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	ChatID      string             `bson:"chatId"`
	Content     string             `bson:"content"`
	SenderID    string             `bson:"senderId"`
	SenderName  string             `bson:"senderName"`
	SenderEmail string             `bson:"senderEmail"`
	Timestamp   time.Time          `bson:"timestamp"`
}

func (d chatDoc) room() *chat.ChatRoom {
	room := &chat.ChatRoom{
		ID:               d.ID,
		Participants:     d.Participants,
		ParticipantsData: make(map[string]chat.ParticipantData, len(d.ParticipantsData)),
		LastMessage: chat.LastMessage{
			Content:   d.LastMessage.Content,
			Timestamp: d.LastMessage.Timestamp,
			SenderID:  d.LastMessage.SenderID,
		},
		CreatedAt: d.CreatedAt,
	}
	for id, p := range d.ParticipantsData {
		room.ParticipantsData[id] = chat.ParticipantData{Name: p.Name, Email: p.Email, LastReadAt: p.LastReadAt}
	}
	return room
}

func (d messageDoc) message() chat.Message {
	return chat.Message{
		ID:          d.ID.Hex(),
		ChatID:      d.ChatID,
		Content:     d.Content,
		SenderID:    d.SenderID,
		SenderName:  d.SenderName,
		SenderEmail: d.SenderEmail,
		Timestamp:   d.Timestamp,
	}
}

// Store is a chat.Gateway backed by the chats, messages and users collections.
type Store struct {
	chats    *mongo.Collection
	messages *mongo.Collection
	users    *mongo.Collection
	now      func() time.Time
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		chats:    db.Collection(chatCollection),
		messages: db.Collection(messageCollection),
		users:    db.Collection(userCollection),
		now:      time.Now,
	}
}

func (s *Store) GetRoom(ctx context.Context, chatID string) (*chat.ChatRoom, error) {
	var doc chatDoc
	err := s.chats.FindOne(ctx, bson.M{"_id": chatID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, chat.ErrRoomNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find chat %s", chatID)
	}
	return doc.room(), nil
}

// GetOrCreateRoom upserts the room with $setOnInsert, so an existing room is
// returned unchanged and concurrent creators converge on one document.
func (s *Store) GetOrCreateRoom(ctx context.Context, a, b chat.UserIdentity) (*chat.ChatRoom, error) {
	room := chat.NewChatRoom(a, b, s.now().UTC())

	participants := make(map[string]participantDoc, len(room.ParticipantsData))
	for id, p := range room.ParticipantsData {
		participants[id] = participantDoc{Name: p.Name, Email: p.Email}
	}
	update := bson.M{"$setOnInsert": bson.M{
		"participants":     room.Participants,
		"participantsData": participants,
		"lastMessage": lastMessageDoc{
			Content:   room.LastMessage.Content,
			Timestamp: room.LastMessage.Timestamp,
			SenderID:  room.LastMessage.SenderID,
		},
		"createdAt": room.CreatedAt,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc chatDoc
	err := s.chats.FindOneAndUpdate(ctx, bson.M{"_id": room.ID}, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// Lost the insert race; the winner's document is there now.
		existing, err := s.GetRoom(ctx, room.ID)
		if err != nil {
			return nil, err
		}
		return pairRoom(existing, a, b)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "upsert chat %s", room.ID)
	}
	return pairRoom(doc.room(), a, b)
}

// pairRoom rejects a room stored under the id of a and b for other users.
// Ids containing the separator can collide.
func pairRoom(room *chat.ChatRoom, a, b chat.UserIdentity) (*chat.ChatRoom, error) {
	if !room.IsPair(a.ID, b.ID) {
		return nil, chat.ErrRoomConflict
	}
	return room, nil
}

func (s *Store) SaveMessage(ctx context.Context, msg *chat.Message) (string, error) {
	room, err := s.GetRoom(ctx, msg.ChatID)
	if err != nil {
		return "", err
	}
	if !room.HasParticipant(msg.SenderID) {
		return "", chat.ErrNotParticipant
	}

	doc := messageDoc{
		ID:          primitive.NewObjectID(),
		ChatID:      msg.ChatID,
		Content:     msg.Content,
		SenderID:    msg.SenderID,
		SenderName:  msg.SenderName,
		SenderEmail: msg.SenderEmail,
		Timestamp:   msg.Timestamp,
	}
	if _, err := s.messages.InsertOne(ctx, doc); err != nil {
		return "", errors.Wrapf(err, "insert message into %s", msg.ChatID)
	}

	_, err = s.chats.UpdateOne(ctx, bson.M{"_id": msg.ChatID}, bson.M{"$set": bson.M{
		"lastMessage": lastMessageDoc{Content: msg.Content, Timestamp: msg.Timestamp, SenderID: msg.SenderID},
	}})
	if err != nil {
		return "", errors.Wrapf(err, "update last message of %s", msg.ChatID)
	}
	return doc.ID.Hex(), nil
}

func (s *Store) UpdateLastReadAt(ctx context.Context, chatID, userID string, at time.Time) error {
	// The user id becomes part of a field path.
	if strings.ContainsAny(userID, ".$") {
		return chat.ErrNotParticipant
	}
	res, err := s.chats.UpdateOne(ctx,
		bson.M{"_id": chatID, "participants": userID},
		bson.M{"$set": bson.M{"participantsData." + userID + ".lastReadAt": at}},
	)
	if err != nil {
		return errors.Wrapf(err, "update last read of %s in %s", userID, chatID)
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetRoom(ctx, chatID); err != nil {
			return err
		}
		return chat.ErrNotParticipant
	}
	return nil
}

func (s *Store) UpdateUserOnlineStatus(ctx context.Context, userID string, online bool) error {
	_, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"isOnline": online, "lastSeen": s.now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return errors.Wrapf(err, "update online status of %s", userID)
}

// Messages returns up to limit of the newest messages of a room, oldest
// first. A limit of zero or less returns all of them.
func (s *Store) Messages(ctx context.Context, chatID string, limit int64) ([]chat.Message, error) {
	if _, err := s.GetRoom(ctx, chatID); err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := s.messages.Find(ctx, bson.M{"chatId": chatID}, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "find messages of %s", chatID)
	}
	defer cursor.Close(ctx)

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrapf(err, "decode messages of %s", chatID)
	}
	out := make([]chat.Message, len(docs))
	for i, d := range docs {
		out[len(docs)-1-i] = d.message()
	}
	return out, nil
}

// Presence reads the stored online flag and last seen time of a user.
func (s *Store) Presence(ctx context.Context, userID string) (chat.Presence, error) {
	var doc struct {
		IsOnline bool      `bson:"isOnline"`
		LastSeen time.Time `bson:"lastSeen"`
	}
	err := s.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return chat.Presence{UserID: userID}, nil
	}
	if err != nil {
		return chat.Presence{}, errors.Wrapf(err, "find user %s", userID)
	}
	return chat.Presence{UserID: userID, Online: doc.IsOnline, LastSeen: doc.LastSeen}, nil
}
