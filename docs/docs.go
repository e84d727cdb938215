// Package docs 由 swag 注解维护的 OpenAPI 文档
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/account/signup": {
            "post": {
                "produces": ["application/json"],
                "tags": ["账户"],
                "summary": "注册",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/account/login": {
            "post": {
                "produces": ["application/json"],
                "tags": ["账户"],
                "summary": "登录",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/account": {
            "put": {
                "produces": ["application/json"],
                "tags": ["账户"],
                "summary": "修改账户",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["账户"],
                "summary": "删除账户",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/account/password": {
            "post": {
                "produces": ["application/json"],
                "tags": ["账户"],
                "summary": "修改密码",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/account/recover": {
            "post": {
                "produces": ["application/json"],
                "tags": ["账户"],
                "summary": "找回密码",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/account/reset": {
            "post": {
                "produces": ["application/json"],
                "tags": ["账户"],
                "summary": "重置密码",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/relations/{user_id}/follow": {
            "post": {
                "produces": ["application/json"],
                "tags": ["关系链"],
                "summary": "关注用户",
                "parameters": [
                    {
                        "type": "string",
                        "name": "user_id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/relations/{user_id}/unfollow": {
            "post": {
                "produces": ["application/json"],
                "tags": ["关系链"],
                "summary": "取消关注",
                "parameters": [
                    {
                        "type": "string",
                        "name": "user_id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/relations/{user_id}/following": {
            "get": {
                "produces": ["application/json"],
                "tags": ["关系链"],
                "summary": "查询关注列表",
                "parameters": [
                    {
                        "type": "string",
                        "name": "user_id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/relations/{user_id}/fans": {
            "get": {
                "produces": ["application/json"],
                "tags": ["关系链"],
                "summary": "查询粉丝列表（Redis 索引）",
                "parameters": [
                    {
                        "type": "string",
                        "name": "user_id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/relations/{user_id}/friends": {
            "get": {
                "produces": ["application/json"],
                "tags": ["关系链"],
                "summary": "查询好友",
                "parameters": [
                    {
                        "type": "string",
                        "name": "user_id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/posts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["帖子"],
                "summary": "帖子列表",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            },
            "post": {
                "produces": ["application/json"],
                "tags": ["帖子"],
                "summary": "发帖",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/posts/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["帖子"],
                "summary": "帖子详情",
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            },
            "put": {
                "produces": ["application/json"],
                "tags": ["帖子"],
                "summary": "编辑帖子",
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["帖子"],
                "summary": "删除帖子",
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/posts/{id}/upvote": {
            "post": {
                "produces": ["application/json"],
                "tags": ["帖子"],
                "summary": "赞帖子",
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/posts/{id}/downvote": {
            "post": {
                "produces": ["application/json"],
                "tags": ["帖子"],
                "summary": "踩帖子",
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/posts/{id}/comments": {
            "get": {
                "produces": ["application/json"],
                "tags": ["评论"],
                "summary": "评论树",
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            },
            "post": {
                "produces": ["application/json"],
                "tags": ["评论"],
                "summary": "发表评论",
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/search": {
            "get": {
                "produces": ["application/json"],
                "tags": ["帖子"],
                "summary": "搜索帖子",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/comments/{id}": {
            "put": {
                "produces": ["application/json"],
                "tags": ["评论"],
                "summary": "编辑评论",
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["评论"],
                "summary": "删除评论",
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/comments/{id}/upvote": {
            "post": {
                "produces": ["application/json"],
                "tags": ["评论"],
                "summary": "赞评论",
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/comments/{id}/downvote": {
            "post": {
                "produces": ["application/json"],
                "tags": ["评论"],
                "summary": "踩评论",
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/comments/{id}/abuse": {
            "post": {
                "produces": ["application/json"],
                "tags": ["评论"],
                "summary": "举报评论",
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/tags": {
            "get": {
                "produces": ["application/json"],
                "tags": ["标签"],
                "summary": "标签云",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/tags/top": {
            "get": {
                "produces": ["application/json"],
                "tags": ["标签"],
                "summary": "热门标签",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/tags/{slug}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["标签"],
                "summary": "标签详情",
                "parameters": [
                    {
                        "type": "string",
                        "name": "slug",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/users/{user}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["用户"],
                "summary": "用户主页",
                "parameters": [
                    {
                        "type": "string",
                        "name": "user",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/users/{user}/comments": {
            "get": {
                "produces": ["application/json"],
                "tags": ["用户"],
                "summary": "用户评论",
                "parameters": [
                    {
                        "type": "string",
                        "name": "user",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/v1/users/{user}/message": {
            "post": {
                "produces": ["application/json"],
                "tags": ["用户"],
                "summary": "发送消息",
                "parameters": [
                    {
                        "type": "string",
                        "name": "user",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/post/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["公开API"],
                "summary": "公开帖子",
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/search": {
            "get": {
                "produces": ["application/json"],
                "tags": ["公开API"],
                "summary": "公开搜索",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        },
        "/api/user/{username}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["公开API"],
                "summary": "用户公开帖子",
                "parameters": [
                    {
                        "type": "string",
                        "name": "username",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/response.Response"}
                    }
                }
            }
        }
    },
    "definitions": {
        "response.Response": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "data": {},
                "fields": {
                    "type": "object",
                    "additionalProperties": {"type": "string"}
                },
                "message": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "newsmeme API",
	Description:      "社交新闻：帖子、评论、投票、标签与关注关系",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
