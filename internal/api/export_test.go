package api

var NewModuleWithVerifier = newModule
