package main

import (
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

// 并发重复确认压测：
// 同一笔 PIX 支付同时收到大量模拟回调与模拟到账请求，
// 预期只有一次状态迁移、库存只扣减一次。
var (
	baseURL    = flag.String("base", "http://localhost:8080", "server base URL")
	mobile     = flag.String("mobile", "13800000001", "buyer mobile (dev OTP login)")
	otpCode    = flag.String("otp", "123456", "fixed OTP code configured in app.test_otp_code")
	productID  = flag.String("product", "", "product id to order (required)")
	concurrent = flag.Int("n", 200, "concurrent confirmation attempts")
)

type envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type loginData struct {
	Token string `json:"token"`
}

type orderData struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
}

type paymentData struct {
	ID         string `json:"id"`
	ExternalID string `json:"externalId"`
	Status     string `json:"status"`
}

func main() {
	flag.Parse()
	if *productID == "" {
		log.Fatal("-product is required")
	}

	client := resty.New().
		SetBaseURL(*baseURL).
		SetTimeout(10 * time.Second)

	// 1. 登录
	token := login(client)
	client.SetAuthToken(token)

	// 2. 下单并发起 PIX
	order := createOrder(client)
	payment := createPix(client, order.ID)
	fmt.Printf("order=%s payment=%s external=%s\n", order.ID, payment.ID, payment.ExternalID)

	// 3. 并发确认：一半走回调，一半走模拟到账
	var wg sync.WaitGroup
	var simulateOK, simulateConflict, webhookOK, failed int64
	start := time.Now()

	for i := 0; i < *concurrent; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				resp, err := client.R().
					SetBody(map[string]string{"externalId": payment.ExternalID, "status": "approved"}).
					Post("/payments/webhook/simulated")
				if err != nil || resp.StatusCode() != 200 {
					atomic.AddInt64(&failed, 1)
					return
				}
				atomic.AddInt64(&webhookOK, 1)
				return
			}

			resp, err := client.R().
				SetPathParam("id", payment.ID).
				Post("/payments/pix/{id}/simulate")
			switch {
			case err != nil:
				atomic.AddInt64(&failed, 1)
			case resp.StatusCode() == 200:
				atomic.AddInt64(&simulateOK, 1)
			case resp.StatusCode() == 409:
				atomic.AddInt64(&simulateConflict, 1)
			default:
				atomic.AddInt64(&failed, 1)
			}
		}(i)
	}
	wg.Wait()
	duration := time.Since(start)

	// 4. 校验最终状态
	final := checkPayment(client, payment.ID)
	finalOrder := getOrder(client, order.ID)

	fmt.Println("--------------------------------------------------")
	fmt.Printf("duration: %v, requests: %d, qps: %.2f\n", duration, *concurrent, float64(*concurrent)/duration.Seconds())
	fmt.Printf("webhook acknowledged: %d\n", webhookOK)
	fmt.Printf("simulate succeeded: %d, rejected as not pending: %d\n", simulateOK, simulateConflict)
	fmt.Printf("transport/other failures: %d\n", failed)
	fmt.Printf("payment status: %s, order status: %s/%s\n", final.Status, finalOrder.Status, finalOrder.PaymentStatus)
	fmt.Println("--------------------------------------------------")

	if final.Status != "PAID" || finalOrder.PaymentStatus != "PAID" {
		log.Fatal("FAIL: payment was not confirmed")
	}
	if simulateOK > 1 {
		log.Fatalf("FAIL: %d simulate calls reported a transition, expected at most 1", simulateOK)
	}
	fmt.Println("OK: exactly-once confirmation held")
}

func login(client *resty.Client) string {
	if _, err := client.R().SetBody(map[string]string{"mobile": *mobile}).Post("/auth/otp"); err != nil {
		log.Fatalf("send otp: %v", err)
	}
	var out envelope[loginData]
	resp, err := client.R().
		SetBody(map[string]string{"mobile": *mobile, "code": *otpCode}).
		SetResult(&out).
		Post("/auth/login")
	mustOK(resp, err, "login")
	return out.Data.Token
}

func createOrder(client *resty.Client) orderData {
	var out envelope[orderData]
	resp, err := client.R().
		SetBody(map[string]interface{}{
			"customerInfo": map[string]string{
				"name":    "Stress Buyer",
				"email":   "stress@example.com",
				"address": "Rua Teste 1",
				"state":   "SP",
			},
			"items":         []map[string]interface{}{{"id": *productID, "quantity": 1}},
			"paymentMethod": "pix",
		}).
		SetResult(&out).
		Post("/orders")
	mustOK(resp, err, "create order")
	return out.Data
}

func createPix(client *resty.Client, orderID string) paymentData {
	var out envelope[paymentData]
	resp, err := client.R().
		SetBody(map[string]string{"orderId": orderID, "provider": "simulated"}).
		SetResult(&out).
		Post("/payments/pix")
	mustOK(resp, err, "create pix")
	return out.Data
}

func checkPayment(client *resty.Client, paymentID string) paymentData {
	var out envelope[paymentData]
	resp, err := client.R().
		SetQueryParam("paymentId", paymentID).
		SetResult(&out).
		Get("/payments/pix/check")
	mustOK(resp, err, "check payment")
	return out.Data
}

func getOrder(client *resty.Client, orderID string) orderData {
	var out envelope[orderData]
	resp, err := client.R().
		SetPathParam("id", orderID).
		SetResult(&out).
		Get("/orders/{id}")
	mustOK(resp, err, "get order")
	return out.Data
}

func mustOK(resp *resty.Response, err error, step string) {
	if err != nil {
		log.Fatalf("%s: %v", step, err)
	}
	if resp.IsError() {
		log.Fatalf("%s: status %d: %s", step, resp.StatusCode(), resp.String())
	}
}
