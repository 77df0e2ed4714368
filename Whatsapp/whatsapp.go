package Whatsapp

import (
	"ClinicFlow/Constants"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	whatsapp_chatbot_golang "github.com/green-api/whatsapp-chatbot-golang"
	"github.com/sirupsen/logrus"
)

// Listen starts the inbound WhatsApp bot; patients replying to reminders end
// up here.
func Listen() {
	bot := whatsapp_chatbot_golang.NewBot(os.Getenv("GREEN_API_INSTANCE"), os.Getenv("GREEN_API_TOKEN"))

	bot.SetStartScene(StartScene{})

	bot.StartReceivingNotifications()
}

type StartScene struct {
}

func (s StartScene) Start(bot *whatsapp_chatbot_golang.Bot) {
	bot.IncomingMessageHandler(func(message *whatsapp_chatbot_golang.Notification) {
		text, _ := message.Text()
		logrus.Infof("incoming whatsapp message: %s", text)
	})
}

func CheckLogin(c *gin.Context) {
	client := &http.Client{}

	url := Constants.WhatsappGoService + "/app/devices"
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		logrus.Warn(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "WhatsApp gateway unreachable"})
		return
	}
	req.Header.Add("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		logrus.Warn(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "WhatsApp gateway unreachable"})
		return
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		logrus.Warn(err)
		return
	}
	var output struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Results []struct {
			Name   string `json:"name"`
			Device string `json:"device"`
		}
	}
	if err = json.Unmarshal(body, &output); err != nil {
		logrus.Warn(err)
		return
	}

	if len(output.Results) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "Not Logged In"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged In"})
}

func GetQRCode(c *gin.Context) {
	client := &http.Client{}

	urlLogin := Constants.WhatsappGoService + "/app/login"
	req, err := http.NewRequest(http.MethodGet, urlLogin, nil)
	if err != nil {
		logrus.Warn(err)
		return
	}
	req.Header.Add("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		logrus.Warn(err)
		return
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		logrus.Warn(err)
		return
	}

	var output struct {
		Results struct {
			QRLink string `json:"qr_link"`
		} `json:"results"`
	}

	if err = json.Unmarshal(body, &output); err != nil {
		logrus.Warn(err)
		return
	}

	req, err = http.NewRequest(http.MethodGet, output.Results.QRLink, nil)
	if err != nil {
		logrus.Warn(err)
		return
	}
	req.Header.Add("Content-Type", "application/json")

	res, err = client.Do(req)
	if err != nil {
		logrus.Warn(err)
		return
	}
	defer res.Body.Close()

	body, err = io.ReadAll(res.Body)
	if err != nil {
		logrus.Warn(err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=qr.png")
	c.Data(http.StatusOK, "application/octet-stream", body)
}

func SendMessage(phone, message string) error {
	client := &http.Client{}

	urlSend := Constants.WhatsappGoService + "/send/message"
	payload, err := json.Marshal(map[string]string{"phone": phone, "message": message})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, urlSend, bytes.NewBuffer(payload))
	if err != nil {
		logrus.Warn(err)
		return err
	}
	req.Header.Add("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		logrus.Warn(err)
		return err
	}
	defer res.Body.Close()

	if _, err := io.ReadAll(res.Body); err != nil {
		logrus.Warn(err)
		return err
	}
	logrus.Info("whatsapp message sent")
	return nil
}
