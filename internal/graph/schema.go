package graph

import (
	"github.com/geocoder89/usergraph/internal/domain/user"
	"github.com/graphql-go/graphql"
)

// NewSchema builds the API schema with r's resolvers attached.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	roleEnum := graphql.NewEnum(graphql.EnumConfig{
		Name: "Role",
		Values: graphql.EnumValueConfigMap{
			string(user.RoleAdmin): &graphql.EnumValueConfig{Value: string(user.RoleAdmin)},
			string(user.RoleUser):  &graphql.EnumValueConfig{Value: string(user.RoleUser)},
			string(user.RoleGuest): &graphql.EnumValueConfig{Value: string(user.RoleGuest)},
		},
	})

	postType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Post",
		Fields: graphql.Fields{
			"id":    &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: postID},
			"title": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"body":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: userID},
			"isActive": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"age":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"name":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"email":    &graphql.Field{Type: graphql.String},
			"role":     &graphql.Field{Type: graphql.NewNonNull(roleEnum), Resolve: userRole},
			"posts": &graphql.Field{
				Type: graphql.NewList(postType),
				Args: graphql.FieldConfigArgument{
					"last": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: r.userPosts,
			},
		},
	})

	paginationInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "PaginationInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"page":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Int)},
			"count": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	paginationArgs := graphql.FieldConfigArgument{
		"pagination": &graphql.ArgumentConfig{Type: graphql.NewNonNull(paginationInput)},
	}

	registerResponse := graphql.NewObject(graphql.ObjectConfig{
		Name: "RegisterationResponse",
		Fields: graphql.Fields{
			"isSuccess": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"message":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	loginResult := graphql.NewObject(graphql.ObjectConfig{
		Name: "LoginResult",
		Fields: graphql.Fields{
			"isSuccess": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"message":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"token":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	nonNullString := graphql.NewNonNull(graphql.String)

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"helloworld": &graphql.Field{Type: graphql.String, Resolve: r.helloWorld},
			"profile":    &graphql.Field{Type: userType, Resolve: r.profile},
			"getPosts": &graphql.Field{
				Type:    graphql.NewList(postType),
				Args:    paginationArgs,
				Resolve: r.getPosts,
			},
			"getUsers": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(userType))),
				Args:    paginationArgs,
				Resolve: r.getUsers,
			},
			"getUserByID": &graphql.Field{
				Type: graphql.NewNonNull(userType),
				Args: graphql.FieldConfigArgument{
					"userId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: r.getUserByID,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"register": &graphql.Field{
				Type: registerResponse,
				Args: graphql.FieldConfigArgument{
					"email":    &graphql.ArgumentConfig{Type: nonNullString},
					"name":     &graphql.ArgumentConfig{Type: nonNullString},
					"password": &graphql.ArgumentConfig{Type: nonNullString},
				},
				Resolve: r.register,
			},
			"login": &graphql.Field{
				Type: loginResult,
				Args: graphql.FieldConfigArgument{
					"email":    &graphql.ArgumentConfig{Type: nonNullString},
					"password": &graphql.ArgumentConfig{Type: nonNullString},
				},
				Resolve: r.login,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}
