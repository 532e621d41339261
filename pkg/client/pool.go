package client

import "sync"

var PoolGlobal = NewPool()

// Pool one client per endpoint and api key
type Pool struct {
	clients *sync.Map
}

func NewPool() *Pool {
	return &Pool{
		clients: new(sync.Map),
	}
}

func (p *Pool) GetClient(endpoint, apiKey string) (*Client, error) {
	key := endpoint + "\x00" + apiKey
	if val, existed := p.clients.Load(key); existed {
		return val.(*Client), nil
	}
	client, err := NewClient(endpoint, WithApiKey(apiKey))
	if err != nil {
		return nil, err
	}
	val, _ := p.clients.LoadOrStore(key, client)
	return val.(*Client), nil
}
