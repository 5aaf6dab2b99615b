package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// One-off repair tool: recomputes the denormalized counters on posts and
// comments from the vote and comment records. Only needed after a manual
// data edit; normal operation keeps counters in sync transactionally.
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI("mongodb://localhost:27017"))
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(ctx)

	db := client.Database("cropwise")
	votes := db.Collection("votes")
	comments := db.Collection("comments")

	recount := func(coll *mongo.Collection, isPost bool) (int, error) {
		cursor, err := coll.Find(ctx, bson.M{})
		if err != nil {
			return 0, err
		}
		defer cursor.Close(ctx)

		fixed := 0
		for cursor.Next(ctx) {
			var doc struct {
				ID primitive.ObjectID `bson:"_id"`
			}
			if err := cursor.Decode(&doc); err != nil {
				return fixed, err
			}

			likes, err := votes.CountDocuments(ctx, bson.M{"subject_id": doc.ID, "value": 1})
			if err != nil {
				return fixed, err
			}
			dislikes, err := votes.CountDocuments(ctx, bson.M{"subject_id": doc.ID, "value": -1})
			if err != nil {
				return fixed, err
			}

			set := bson.M{
				"like_count":    likes,
				"dislike_count": dislikes,
				"vote_count":    likes - dislikes,
			}
			if isPost {
				commentCount, err := comments.CountDocuments(ctx, bson.M{"post_id": doc.ID})
				if err != nil {
					return fixed, err
				}
				set["comment_count"] = commentCount
			}

			res, err := coll.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": set})
			if err != nil {
				return fixed, err
			}
			if res.ModifiedCount > 0 {
				fixed++
			}
		}
		return fixed, cursor.Err()
	}

	fixedPosts, err := recount(db.Collection("posts"), true)
	if err != nil {
		log.Fatalf("recount posts: %v", err)
	}
	fixedComments, err := recount(comments, false)
	if err != nil {
		log.Fatalf("recount comments: %v", err)
	}

	fmt.Printf("✅ Recount done: %d posts and %d comments corrected\n", fixedPosts, fixedComments)
}
