package main

type sessionKey string

const workspaceIDSessionKey = sessionKey("workspaceID")
const flashSessionKey = sessionKey("flash")
